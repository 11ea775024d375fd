package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrReservationNotFound indicates the lease does not exist or already expired
type ErrReservationNotFound struct {
	ID uuid.UUID
}

func (e ErrReservationNotFound) Error() string {
	return "reservation not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrReservationNotFound
func (e ErrReservationNotFound) Is(target error) bool {
	t, ok := target.(ErrReservationNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// Reservation is an ephemeral hold on credits. Leases live only in process
// memory: a restart drops them all, which is safe because no ledger entry is
// written until the reservation is committed.
type Reservation struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease has passed its TTL
func (r *Reservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// ReservationTable is the in-process lease table consulted by Authorize.
// Held amounts reduce the balance available to new spends until the lease is
// committed, released, or swept.
type ReservationTable struct {
	mu     sync.Mutex
	leases map[uuid.UUID]*Reservation
	ttl    time.Duration
}

// NewReservationTable creates an empty lease table with the given default TTL
func NewReservationTable(ttl time.Duration) *ReservationTable {
	return &ReservationTable{
		leases: make(map[uuid.UUID]*Reservation),
		ttl:    ttl,
	}
}

// Add records a new lease and returns it
func (t *ReservationTable) Add(accountID uuid.UUID, amount int64) (*Reservation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("reservation amount must be positive, got %d", amount)
	}

	r := &Reservation{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		ExpiresAt: time.Now().UTC().Add(t.ttl),
	}

	t.mu.Lock()
	t.leases[r.ID] = r
	t.mu.Unlock()

	return r, nil
}

// Get returns a live lease. Expired leases are treated as absent even before
// the sweeper removes them.
func (t *ReservationTable) Get(id uuid.UUID) (*Reservation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.leases[id]
	if !ok || r.Expired(time.Now().UTC()) {
		return nil, ErrReservationNotFound{ID: id}
	}
	return r, nil
}

// Remove drops a lease, returning whether it existed
func (t *ReservationTable) Remove(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.leases[id]
	delete(t.leases, id)
	return ok
}

// HeldFor sums the live holds against an account, excluding the given lease
// id (pass uuid.Nil to exclude nothing)
func (t *ReservationTable) HeldFor(accountID uuid.UUID, exclude uuid.UUID) int64 {
	now := time.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	var held int64
	for _, r := range t.leases {
		if r.AccountID != accountID || r.ID == exclude || r.Expired(now) {
			continue
		}
		held += r.Amount
	}
	return held
}

// SweepExpired removes all expired leases and returns how many were dropped.
// Expired leases leave no partial state: nothing was written to the ledger.
func (t *ReservationTable) SweepExpired() int {
	now := time.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	swept := 0
	for id, r := range t.leases {
		if r.Expired(now) {
			delete(t.leases, id)
			swept++
		}
	}
	return swept
}
