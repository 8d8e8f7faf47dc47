package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/trialguard/internal/models"
	"github.com/magabrotheeeer/trialguard/internal/storage/pgtest"
)

func setupStorage(t *testing.T) *Storage {
	t.Helper()
	_, db := pgtest.StartMigrated(t)
	return &Storage{DB: db}
}

func createUser(t *testing.T, s *Storage, username string) string {
	t.Helper()
	uid, err := s.RegisterUser(context.Background(), models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "hash",
		Role:         models.RoleUser,
	})
	require.NoError(t, err)
	return uid
}

func createSubscription(t *testing.T, s *Storage, userUID, name string, trialEnd *time.Time) int64 {
	t.Helper()
	id, err := s.CreateSubscription(context.Background(), models.Subscription{
		UserUID:      userUID,
		Name:         name,
		Price:        decimal.RequireFromString("15.99"),
		BillingCycle: "MONTHLY",
		TrialEndDate: trialEnd,
		Status:       models.StatusActive,
	}, nil)
	require.NoError(t, err)
	return id
}

func TestUsers(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	uid := createUser(t, s, "alice")

	u, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uid, u.UUID)
	assert.Equal(t, "alice@example.com", u.Email)

	_, err = s.RegisterUser(ctx, models.User{Email: "other@example.com", Username: "alice", PasswordHash: "x", Role: "user"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriptions_CRUD(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	category := "Streaming"
	trialEnd := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	reminderAt := trialEnd.Add(-48 * time.Hour)
	id, err := s.CreateSubscription(ctx, models.Subscription{
		UserUID:      alice,
		Name:         "Netflix",
		Price:        decimal.RequireFromString("15.99"),
		BillingCycle: "MONTHLY",
		Category:     &category,
		TrialEndDate: &trialEnd,
		Status:       models.StatusActive,
	}, &reminderAt)
	require.NoError(t, err)

	sub, err := s.GetSubscription(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, "Netflix", sub.Name)
	assert.True(t, sub.Price.Equal(decimal.RequireFromString("15.99")))
	require.NotNil(t, sub.Category)
	assert.Equal(t, "Streaming", *sub.Category)
	require.NotNil(t, sub.TrialEndDate)
	assert.True(t, trialEnd.Equal(*sub.TrialEndDate))
	assert.Nil(t, sub.NextBillingDate)

	_, err = s.GetSubscription(ctx, bob, id)
	assert.ErrorIs(t, err, ErrNotFound, "foreign subscription is invisible")

	reminders, err := s.ListReminders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.True(t, reminders[0].Auto)
	assert.True(t, reminderAt.Equal(reminders[0].Date))

	// обновление с переносом пересоздаёт автоматическое напоминание
	newReminder := reminderAt.Add(24 * time.Hour)
	sub.Price = decimal.RequireFromString("17.99")
	require.NoError(t, s.UpdateSubscription(ctx, *sub, true, &newReminder))
	reminders, err = s.ListReminders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.True(t, newReminder.Equal(reminders[0].Date))

	// без переноса напоминания не трогаются
	sub.Name = "Netflix Premium"
	require.NoError(t, s.UpdateSubscription(ctx, *sub, false, nil))
	reminders, err = s.ListReminders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.True(t, newReminder.Equal(reminders[0].Date))

	sub.UserUID = bob
	assert.ErrorIs(t, s.UpdateSubscription(ctx, *sub, false, nil), ErrNotFound)

	list, err := s.ListSubscriptions(ctx, alice, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.CancelSubscription(ctx, alice, id))
	active, err := s.ListActiveSubscriptions(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, active)
	reminders, err = s.ListReminders(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, reminders, "cancel drops pending reminders")

	require.NoError(t, s.DeleteSubscription(ctx, alice, id))
	assert.ErrorIs(t, s.DeleteSubscription(ctx, alice, id), ErrNotFound)
}

func TestReminders_ClaimCompleteRelease(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	uid := createUser(t, s, "carol")
	subID := createSubscription(t, s, uid, "Netflix", nil)

	now := time.Now().UTC()
	past, err := s.CreateReminder(ctx, uid, subID, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.CreateReminder(ctx, uid, subID, now.Add(48*time.Hour))
	require.NoError(t, err)

	params := ClaimParams{To: now.Add(time.Hour), Token: uuid.NewString(), Now: now, StaleAfter: 30 * time.Minute, Limit: 100}
	due, err := s.ClaimDueReminders(ctx, params)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)
	assert.Equal(t, "Netflix", due[0].Name)
	assert.Equal(t, "carol@example.com", due[0].Email)
	assert.Equal(t, params.Token, due[0].ClaimToken)

	// второй прогон не видит уже захваченное
	again, err := s.ClaimDueReminders(ctx, ClaimParams{To: params.To, Token: uuid.NewString(), Now: now, StaleAfter: 30 * time.Minute, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, again)

	// чужой токен не может завершить
	_, err = s.CompleteReminder(ctx, past.ID, uuid.NewString(), models.Notification{UserUID: uid, Type: "reminder", Title: "t", Message: "m"})
	assert.ErrorIs(t, err, ErrClaimLost)

	require.NoError(t, s.ReleaseReminder(ctx, past.ID, params.Token))
	assert.ErrorIs(t, s.ReleaseReminder(ctx, past.ID, params.Token), ErrClaimLost)

	params.Token = uuid.NewString()
	due, err = s.ClaimDueReminders(ctx, params)
	require.NoError(t, err)
	require.Len(t, due, 1)

	n, err := s.CompleteReminder(ctx, past.ID, params.Token, models.Notification{
		UserUID: uid, Type: models.NotificationTypeReminder, Title: "Netflix trial ends soon", Message: "m",
	})
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.False(t, n.Read)

	params.Token = uuid.NewString()
	due, err = s.ClaimDueReminders(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, due, "sent reminder is never selected again")

	assert.ErrorIs(t, s.DeleteReminder(ctx, uid, past.ID), ErrNotFound, "sent reminder is kept")
}

func TestReminders_CanceledSubscription(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	uid := createUser(t, s, "gina")
	subID := createSubscription(t, s, uid, "Disney+", nil)
	now := time.Now().UTC()

	pending, err := s.CreateReminder(ctx, uid, subID, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = s.CreateReminder(ctx, uid, subID, now.Add(-time.Hour))
	require.NoError(t, err)

	// одно напоминание захвачено прогоном, который ещё не завершился
	inflight := ClaimParams{To: now, Token: uuid.NewString(), Now: now, StaleAfter: 30 * time.Minute, Limit: 1}
	due, err := s.ClaimDueReminders(ctx, inflight)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, pending.ID, due[0].ID)

	require.NoError(t, s.CancelSubscription(ctx, uid, subID))

	reminders, err := s.ListReminders(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, reminders, "cancel drops claimed reminders too")

	_, err = s.CompleteReminder(ctx, pending.ID, inflight.Token, models.Notification{UserUID: uid, Type: "reminder", Title: "t", Message: "m"})
	assert.ErrorIs(t, err, ErrClaimLost)

	_, err = s.CreateReminder(ctx, uid, subID, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound, "no reminders for a canceled subscription")
}

func TestReminders_ClaimSkipsInactiveSubscriptions(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	uid := createUser(t, s, "hank")
	subID := createSubscription(t, s, uid, "Hulu", nil)
	now := time.Now().UTC()
	_, err := s.CreateReminder(ctx, uid, subID, now.Add(-time.Hour))
	require.NoError(t, err)

	_, err = s.DB.ExecContext(ctx, `UPDATE subscriptions SET status = $1 WHERE id = $2`, models.StatusPaused, subID)
	require.NoError(t, err)

	due, err := s.ClaimDueReminders(ctx, ClaimParams{To: now, Token: uuid.NewString(), Now: now, StaleAfter: time.Hour, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, due)

	reminders, err := s.ListReminders(ctx, uid)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "pending", reminders[0].Status, "skipped reminder stays unclaimed")
}

func TestReminders_StaleClaimIsReclaimed(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	uid := createUser(t, s, "dave")
	subID := createSubscription(t, s, uid, "Spotify", nil)
	now := time.Now().UTC()
	_, err := s.CreateReminder(ctx, uid, subID, now.Add(-time.Hour))
	require.NoError(t, err)

	crashed := ClaimParams{To: now, Token: uuid.NewString(), Now: now.Add(-time.Hour), StaleAfter: 30 * time.Minute, Limit: 10}
	due, err := s.ClaimDueReminders(ctx, crashed)
	require.NoError(t, err)
	require.Len(t, due, 1)

	due, err = s.ClaimDueReminders(ctx, ClaimParams{To: now, Token: uuid.NewString(), Now: now, StaleAfter: 30 * time.Minute, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, due, 1, "claim older than the lease is picked up again")
}

func TestReminders_ConcurrentClaimsAreDisjoint(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	uid := createUser(t, s, "erin")
	subID := createSubscription(t, s, uid, "Hulu", nil)
	now := time.Now().UTC()
	for i := range 20 {
		_, err := s.CreateReminder(ctx, uid, subID, now.Add(-time.Duration(i+1)*time.Minute))
		require.NoError(t, err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]int{}
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			due, err := s.ClaimDueReminders(ctx, ClaimParams{To: now, Token: uuid.NewString(), Now: now, StaleAfter: time.Hour, Limit: 8})
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			for _, d := range due {
				seen[d.ID]++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 20)
	for id, n := range seen {
		assert.Equalf(t, 1, n, "reminder %d claimed more than once", id)
	}
}

func TestNotifications(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	uid := createUser(t, s, "frank")
	subID := createSubscription(t, s, uid, "Netflix", nil)
	now := time.Now().UTC()

	for range 3 {
		r, err := s.CreateReminder(ctx, uid, subID, now.Add(-time.Minute))
		require.NoError(t, err)
		token := uuid.NewString()
		due, err := s.ClaimDueReminders(ctx, ClaimParams{To: now, Token: token, Now: now, StaleAfter: time.Hour, Limit: 1})
		require.NoError(t, err)
		require.Len(t, due, 1)
		_, err = s.CompleteReminder(ctx, r.ID, token, models.Notification{UserUID: uid, Type: "reminder", Title: "Netflix", Message: "m"})
		require.NoError(t, err)
	}

	list, err := s.ListNotifications(ctx, uid, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	count, err := s.CountUnread(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, s.MarkNotificationRead(ctx, uid, list[0].ID))
	unread, err := s.ListNotifications(ctx, uid, true, 10, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	changed, err := s.MarkAllNotificationsRead(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	require.NoError(t, s.DeleteNotification(ctx, uid, list[1].ID))
	assert.ErrorIs(t, s.DeleteNotification(ctx, uid, list[1].ID), ErrNotFound)
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, uuid.NewString(), list[0].ID), ErrNotFound)
}
