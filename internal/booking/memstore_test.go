package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/domain"
)

// memStore implements Store in memory. One mutex serializes whole
// transactions, which models SERIALIZABLE closely enough for the core:
// conflict checks inside a tx observe a consistent snapshot, and a
// failed tx rolls back to the state at entry.
type memStore struct {
	mu       sync.Mutex
	holds    map[uuid.UUID]domain.SeatHold
	bookings map[uuid.UUID]domain.Booking
	payments []domain.PaymentTransaction
	events   []Event
}

func newMemStore() *memStore {
	return &memStore{
		holds:    make(map[uuid.UUID]domain.SeatHold),
		bookings: make(map[uuid.UUID]domain.Booking),
	}
}

type memSnapshot struct {
	holds    map[uuid.UUID]domain.SeatHold
	bookings map[uuid.UUID]domain.Booking
	payments []domain.PaymentTransaction
	events   []Event
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		holds:    make(map[uuid.UUID]domain.SeatHold, len(s.holds)),
		bookings: make(map[uuid.UUID]domain.Booking, len(s.bookings)),
		payments: append([]domain.PaymentTransaction(nil), s.payments...),
		events:   append([]Event(nil), s.events...),
	}
	for k, v := range s.holds {
		snap.holds[k] = v
	}
	for k, v := range s.bookings {
		snap.bookings[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.holds = snap.holds
	s.bookings = snap.bookings
	s.payments = snap.payments
	s.events = snap.events
}

func (s *memStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getBookingLocked(s, id)
}

func (s *memStore) GetBookingByTicket(ctx context.Context, ticketNo string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.TicketNo == ticketNo {
			b := b
			return &b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) HoldByID(ctx context.Context, id uuid.UUID) (*domain.SeatHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &h, nil
}

func (s *memStore) BookedSeats(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var seats []int
	for _, b := range s.bookings {
		if b.TripID == tripID && b.Occupies() {
			seats = append(seats, b.SeatNo)
		}
	}
	return seats, nil
}

func (s *memStore) HeldSeats(ctx context.Context, tripID uuid.UUID, now time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var seats []int
	for _, h := range s.holds {
		if h.TripID == tripID && h.ActiveAt(now) {
			seats = append(seats, h.SeatNo)
		}
	}
	return seats, nil
}

func (s *memStore) ExpireHolds(ctx context.Context, now time.Time) ([]domain.SeatHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []domain.SeatHold
	for id, h := range s.holds {
		if h.Status == domain.HoldActive && !now.Before(h.ExpiresAt) {
			h.Status = domain.HoldExpired
			s.holds[id] = h
			expired = append(expired, h)
		}
	}
	return expired, nil
}

func (s *memStore) committedEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *memStore) ledger(bookingID uuid.UUID) []domain.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PaymentTransaction
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out
}

func getBookingLocked(s *memStore, id uuid.UUID) (*domain.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

// memTx runs under the store mutex held by WithTx.
type memTx struct {
	s *memStore
}

func (t *memTx) InsertHold(ctx context.Context, hold domain.SeatHold) error {
	for _, h := range t.s.holds {
		if h.TripID == hold.TripID && h.SeatNo == hold.SeatNo && h.Status == domain.HoldActive {
			return domain.ErrConflict
		}
	}
	t.s.holds[hold.ID] = hold
	return nil
}

func (t *memTx) ExpireStaleHold(ctx context.Context, tripID uuid.UUID, seatNo int, now time.Time) (bool, error) {
	for id, h := range t.s.holds {
		if h.TripID == tripID && h.SeatNo == seatNo && h.Status == domain.HoldActive && !now.Before(h.ExpiresAt) {
			h.Status = domain.HoldExpired
			t.s.holds[id] = h
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) ActiveHold(ctx context.Context, tripID uuid.UUID, seatNo int) (*domain.SeatHold, error) {
	for _, h := range t.s.holds {
		if h.TripID == tripID && h.SeatNo == seatNo && h.Status == domain.HoldActive {
			h := h
			return &h, nil
		}
	}
	return nil, nil
}

func (t *memTx) FinishHold(ctx context.Context, holdID uuid.UUID, status domain.HoldStatus) (bool, error) {
	h, ok := t.s.holds[holdID]
	if !ok || h.Status != domain.HoldActive {
		return false, nil
	}
	h.Status = status
	t.s.holds[holdID] = h
	return true, nil
}

func (t *memTx) ReleaseHold(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID) (bool, error) {
	for id, h := range t.s.holds {
		if h.TripID == tripID && h.SeatNo == seatNo && h.HolderID == holderID && h.Status == domain.HoldActive {
			h.Status = domain.HoldReleased
			t.s.holds[id] = h
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) SeatBooked(ctx context.Context, tripID uuid.UUID, seatNo int) (bool, error) {
	for _, b := range t.s.bookings {
		if b.TripID == tripID && b.SeatNo == seatNo && b.Status != domain.BookingCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b domain.Booking) error {
	for _, existing := range t.s.bookings {
		if existing.TripID == b.TripID && existing.SeatNo == b.SeatNo && existing.Status != domain.BookingCancelled {
			return domain.ErrConflict
		}
	}
	t.s.bookings[b.ID] = b
	return nil
}

func (t *memTx) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return getBookingLocked(t.s, id)
}

func (t *memTx) UpdateBooking(ctx context.Context, b domain.Booking) error {
	if _, ok := t.s.bookings[b.ID]; !ok {
		return domain.ErrNotFound
	}
	t.s.bookings[b.ID] = b
	return nil
}

func (t *memTx) InsertPayment(ctx context.Context, p domain.PaymentTransaction) error {
	t.s.payments = append(t.s.payments, p)
	return nil
}

func (t *memTx) InsertEvent(ctx context.Context, e Event) error {
	t.s.events = append(t.s.events, e)
	return nil
}

// fakeTrips serves trips from a map.
type fakeTrips struct {
	mu    sync.Mutex
	trips map[uuid.UUID]domain.Trip
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{trips: make(map[uuid.UUID]domain.Trip)}
}

func (f *fakeTrips) put(t domain.Trip) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trips[t.ID] = t
}

func (f *fakeTrips) GetTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok {
		return nil, domain.ErrTripNotFound
	}
	return &t, nil
}

// fakeLock mimics redis SETNX with TTLs driven by the test clock.
type fakeLock struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]time.Time
}

func newFakeLock(now func() time.Time) *fakeLock {
	return &fakeLock{now: now, locks: make(map[string]time.Time)}
}

func lockKey(tripID uuid.UUID, seatNo int) string {
	return fmt.Sprintf("%s:%d", tripID, seatNo)
}

func (f *fakeLock) Lock(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := lockKey(tripID, seatNo)
	if exp, ok := f.locks[key]; ok && f.now().Before(exp) {
		return false, nil
	}
	f.locks[key] = f.now().Add(ttl)
	return true, nil
}

func (f *fakeLock) Unlock(ctx context.Context, tripID uuid.UUID, seatNo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, lockKey(tripID, seatNo))
	return nil
}

// recorderEmitter captures fire-and-forget events.
type recorderEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name    string
	payload any
}

func (r *recorderEmitter) EmitBookingEvent(ctx context.Context, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: event, payload: payload})
	return nil
}

func (r *recorderEmitter) named(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}
