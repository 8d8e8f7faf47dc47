package dispatcher

import "time"

// Outcome результат обработки одного напоминания.
type Outcome int

const (
	// OutcomeSent письмо отправлено, напоминание отмечено, уведомление создано.
	OutcomeSent Outcome = iota
	// OutcomeSentWithoutEmail почта не настроена, но напоминание отмечено и уведомление создано.
	OutcomeSentWithoutEmail
	// OutcomeRetry письмо не доставлено, напоминание возвращено в ожидание.
	OutcomeRetry
	// OutcomeFailed не удалось сохранить результат, напоминание возвращено в ожидание.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSentWithoutEmail:
		return "sent_without_email"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemResult исход по одному напоминанию.
type ItemResult struct {
	ReminderID     int64
	NotificationID int64
	Outcome        Outcome
	Err            error
}

// Summary итог одного прогона.
type Summary struct {
	RunID        string
	Mode         Mode
	Claimed      int
	Sent         int
	EmailSkipped int
	Retried      int
	Failed       int
	Duration     time.Duration
	Items        []ItemResult
}

// Processed число напоминаний, отмеченных отправленными.
func (s Summary) Processed() int {
	return s.Sent + s.EmailSkipped
}

func (s *Summary) add(r ItemResult) {
	switch r.Outcome {
	case OutcomeSent:
		s.Sent++
	case OutcomeSentWithoutEmail:
		s.EmailSkipped++
	case OutcomeRetry:
		s.Retried++
	case OutcomeFailed:
		s.Failed++
	}
	s.Items = append(s.Items, r)
}
