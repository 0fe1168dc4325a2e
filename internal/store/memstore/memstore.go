// Package memstore is an in-memory implementation of the store interfaces.
// Payment transitions use optimistic versioning: a change is only applied when
// the payment still carries the version and status it was read with.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"

	"github.com/google/uuid"
)

var (
	_ store.UserStore    = (*Store)(nil)
	_ store.SessionStore = (*Store)(nil)
	_ store.PaymentStore = (*Store)(nil)
	_ store.OutboxStore  = (*Store)(nil)
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	sessions map[string]models.Session
	payments map[string]models.Payment
	events   []models.PaymentEvent
	offsets  map[string]int64
	nextSeq  int64
	now      func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[string]models.User),
		sessions: make(map[string]models.Session),
		payments: make(map[string]models.Payment),
		offsets:  make(map[string]int64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) UserExists(_ context.Context, username, accountNumber, idNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userConflict(username, accountNumber, idNumber), nil
}

func (s *Store) userConflict(username, accountNumber, idNumber string) bool {
	for _, user := range s.users {
		if user.Username == username || user.AccountNumber == accountNumber || user.IDNumber == idNumber {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userConflict(user.Username, user.AccountNumber, user.IDNumber) {
		return models.User{}, store.ErrUserExists
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.UserID] = user
	return user, nil
}

func (s *Store) FindUser(_ context.Context, lookup store.UserLookup) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username != lookup.Username || user.Role != lookup.Role {
			continue
		}
		if lookup.AccountNumber != "" && user.AccountNumber != lookup.AccountNumber {
			continue
		}
		return user, nil
	}
	return models.User{}, store.ErrUserNotFound
}

func (s *Store) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) ListUsers(_ context.Context, limit int) ([]models.User, error) {
	s.mu.RLock()
	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) CreateSession(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.Expired(s.now()) {
		return models.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return store.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) PurgeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) CreatePayment(_ context.Context, input store.CreatePaymentInput) (models.Payment, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	payment := models.Payment{
		PaymentID:    uuid.NewString(),
		CustomerID:   input.CustomerID,
		Amount:       input.Amount,
		Currency:     input.Currency,
		PayeeAccount: input.PayeeAccount,
		SwiftCode:    input.SwiftCode,
		Provider:     models.ProviderSWIFT,
		Status:       models.StatusPending,
		CreatedAt:    createdAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendEvent(models.EventPaymentCreated, input.CustomerID, payment); err != nil {
		return models.Payment{}, err
	}
	s.payments[payment.PaymentID] = payment
	return payment, nil
}

func (s *Store) GetPayment(_ context.Context, paymentID string) (models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.payments[paymentID]
	if !ok {
		return models.Payment{}, store.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Store) ListPayments(_ context.Context, limit int) ([]models.Payment, error) {
	return s.listPayments(func(models.Payment) bool { return true }, limit), nil
}

func (s *Store) ListCustomerPayments(_ context.Context, customerID string, limit int) ([]models.Payment, error) {
	return s.listPayments(func(p models.Payment) bool { return p.CustomerID == customerID }, limit), nil
}

func (s *Store) listPayments(keep func(models.Payment) bool, limit int) []models.Payment {
	s.mu.RLock()
	payments := make([]models.Payment, 0, len(s.payments))
	for _, payment := range s.payments {
		if keep(payment) {
			payments = append(payments, payment)
		}
	}
	s.mu.RUnlock()

	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].PaymentID < payments[j].PaymentID
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	if limit > 0 && len(payments) > limit {
		payments = payments[:limit]
	}
	return payments
}

func (s *Store) TransitionPayments(_ context.Context, input store.TransitionInput) ([]models.Payment, error) {
	_, to, ok := store.Transition(input.Action)
	if !ok {
		return nil, fmt.Errorf("unknown payment action %q", input.Action)
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	// Snapshot the candidates with their versions, then commit only those
	// whose version is unchanged.
	s.mu.RLock()
	candidates := make(map[string]int, len(input.PaymentIDs))
	for _, id := range input.PaymentIDs {
		if payment, ok := s.payments[id]; ok && store.ValidTransition(input.Action, payment.Status) {
			candidates[id] = payment.Version
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	moved := make([]models.Payment, 0, len(candidates))
	for _, id := range input.PaymentIDs {
		version, ok := candidates[id]
		if !ok {
			continue
		}
		delete(candidates, id)
		payment := s.payments[id]
		if payment.Version != version || !store.ValidTransition(input.Action, payment.Status) {
			continue
		}
		payment.Status = to
		payment.Version++
		at := occurredAt
		actor := input.ActorID
		switch input.Action {
		case store.ActionVerify:
			payment.VerifiedAt = &at
			payment.VerifiedBy = &actor
		case store.ActionSubmit:
			payment.SubmittedAt = &at
			payment.SubmittedBy = &actor
		}
		if err := s.appendEvent(store.EventType(input.Action), input.ActorID, payment); err != nil {
			return nil, err
		}
		s.payments[id] = payment
		moved = append(moved, payment)
	}
	return moved, nil
}

func (s *Store) ListPaymentEvents(_ context.Context, paymentID string) ([]models.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.PaymentEvent, 0)
	for _, event := range s.events {
		if event.PaymentID == paymentID {
			events = append(events, event)
		}
	}
	return events, nil
}

func (s *Store) ListOutboxEvents(_ context.Context, afterSeq int64, limit int) ([]models.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.PaymentEvent, 0)
	for _, event := range s.events {
		if event.Seq <= afterSeq {
			continue
		}
		events = append(events, event)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (s *Store) GetRelayOffset(_ context.Context, consumer string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offsets[consumer], nil
}

func (s *Store) UpdateRelayOffset(_ context.Context, consumer string, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets[consumer] = seq
	return nil
}

// appendEvent must be called with mu held.
func (s *Store) appendEvent(eventType, actorID string, payment models.Payment) error {
	payload, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	s.nextSeq++
	s.events = append(s.events, models.PaymentEvent{
		Seq:       s.nextSeq,
		PaymentID: payment.PaymentID,
		Type:      eventType,
		ActorID:   actorID,
		Payload:   payload,
		CreatedAt: s.now(),
	})
	return nil
}
