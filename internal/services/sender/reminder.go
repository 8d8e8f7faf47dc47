package sender

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/magabrotheeeer/trialguard/internal/lib/billing"
	"github.com/magabrotheeeer/trialguard/internal/models"
)

//go:embed templates/*
var templatesFS embed.FS

var (
	reminderText = texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/reminder.txt"))
	reminderHTML = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/reminder.html"))
)

const dateLayout = "January 2, 2006"

type reminderData struct {
	Username string
	Name     string
	TrialEnd string
	Price    string
	Cycle    string
}

// ReminderEmail письмо-напоминание о подписке. Даты выводятся в поясе loc.
func ReminderEmail(d models.DueReminder, loc *time.Location) (Message, error) {
	const op = "sender.ReminderEmail"

	data := reminderData{
		Username: d.Username,
		Name:     d.Name,
		Price:    d.Price.StringFixed(2),
		Cycle:    cycleLabel(d.BillingCycle),
	}
	subject := fmt.Sprintf("Reminder: your %s subscription", d.Name)
	if d.TrialEndDate != nil {
		data.TrialEnd = d.TrialEndDate.In(loc).Format(dateLayout)
		subject = fmt.Sprintf("Reminder: your %s trial ends on %s", d.Name, data.TrialEnd)
	}

	var text, html bytes.Buffer
	if err := reminderText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := reminderHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return Message{
		To:      d.Email,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func cycleLabel(s string) string {
	c, err := billing.ParseCycle(s)
	if err != nil {
		return s
	}
	return c.Label()
}
