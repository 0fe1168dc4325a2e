package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayment(t *testing.T, st *Store) models.Payment {
	t.Helper()
	payment, err := st.CreatePayment(context.Background(), store.CreatePaymentInput{
		CustomerID:   "customer-1",
		Amount:       decimal.RequireFromString("99.95"),
		Currency:     "ZAR",
		PayeeAccount: "ABC1234567",
		SwiftCode:    "ABCDZAJJ",
	})
	require.NoError(t, err)
	return payment
}

func TestCreateUserRejectsAnySharedIdentifier(t *testing.T) {
	st := New()
	ctx := context.Background()
	_, err := st.CreateUser(ctx, models.User{Username: "alice", AccountNumber: "123456", IDNumber: "900101", Role: models.RoleCustomer})
	require.NoError(t, err)

	for _, user := range []models.User{
		{Username: "alice", AccountNumber: "999999", IDNumber: "800101"},
		{Username: "bob", AccountNumber: "123456", IDNumber: "800101"},
		{Username: "carol", AccountNumber: "999999", IDNumber: "900101"},
	} {
		_, err := st.CreateUser(ctx, user)
		assert.ErrorIs(t, err, store.ErrUserExists)
	}
}

func TestConcurrentVerifyMovesOnce(t *testing.T) {
	st := New()
	payment := newPayment(t, st)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			moved, err := st.TransitionPayments(context.Background(), store.TransitionInput{
				Action:     store.ActionVerify,
				PaymentIDs: []string{payment.PaymentID},
				ActorID:    "staff-1",
			})
			if err != nil {
				t.Errorf("transition: %v", err)
				return
			}
			mu.Lock()
			total += len(moved)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total)
	got, err := st.GetPayment(context.Background(), payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, got.Status)
	assert.Equal(t, 1, got.Version)
}

func TestTransitionSkipsWrongState(t *testing.T) {
	st := New()
	ctx := context.Background()
	pending := newPayment(t, st)
	verified := newPayment(t, st)

	_, err := st.TransitionPayments(ctx, store.TransitionInput{Action: store.ActionVerify, PaymentIDs: []string{verified.PaymentID}, ActorID: "staff-1"})
	require.NoError(t, err)

	moved, err := st.TransitionPayments(ctx, store.TransitionInput{
		Action:     store.ActionSubmit,
		PaymentIDs: []string{pending.PaymentID, verified.PaymentID, verified.PaymentID},
		ActorID:    "staff-2",
	})
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, verified.PaymentID, moved[0].PaymentID)
	assert.Equal(t, models.StatusSubmitted, moved[0].Status)
	require.NotNil(t, moved[0].SubmittedBy)
	assert.Equal(t, "staff-2", *moved[0].SubmittedBy)

	events, err := st.ListPaymentEvents(ctx, verified.PaymentID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.EventPaymentSubmitted, events[2].Type)
}

func TestSessionsExpireAndPurge(t *testing.T) {
	st := New()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, st.CreateSession(ctx, models.Session{SessionID: "live", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, st.CreateSession(ctx, models.Session{SessionID: "stale", ExpiresAt: now.Add(-time.Second)}))

	_, err := st.GetSession(ctx, "stale")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	purged, err := st.PurgeExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = st.GetSession(ctx, "live")
	assert.NoError(t, err)
}

func TestOutboxOrdering(t *testing.T) {
	st := New()
	ctx := context.Background()
	newPayment(t, st)
	newPayment(t, st)
	newPayment(t, st)

	events, err := st.ListOutboxEvents(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Less(t, events[0].Seq, events[1].Seq)

	require.NoError(t, st.UpdateRelayOffset(ctx, "hub", events[1].Seq))
	offset, err := st.GetRelayOffset(ctx, "hub")
	require.NoError(t, err)

	rest, err := st.ListOutboxEvents(ctx, offset, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
