// Package memory is an in-process implementation of the repositories. It
// backs tests and the memory storage driver. Transactions are not isolated:
// RunTx runs fn directly and callers compensate on failure.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type Store struct {
	mu sync.Mutex

	movies    map[int64]domain.Movie
	screens   map[int64]domain.Screen
	seats     map[int64]domain.Seat
	showtimes map[int64]domain.Showtime
	states    map[int64]map[int64]domain.SeatState
	bookings  map[uuid.UUID]domain.Booking

	nextID int64
}

func NewStore() *Store {
	return &Store{
		movies:    make(map[int64]domain.Movie),
		screens:   make(map[int64]domain.Screen),
		seats:     make(map[int64]domain.Seat),
		showtimes: make(map[int64]domain.Showtime),
		states:    make(map[int64]map[int64]domain.SeatState),
		bookings:  make(map[uuid.UUID]domain.Booking),
	}
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	return fn(ctx, s)
}

func (s *Store) Seats() repository.SeatRepository       { return (*seatRepo)(s) }
func (s *Store) Bookings() repository.BookingRepository { return (*bookingRepo)(s) }
func (s *Store) Catalog() repository.CatalogRepository  { return (*catalogRepo)(s) }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type seatRepo Store

func (r *seatRepo) showtimeSeat(showtimeID, seatID int64, st domain.SeatState) domain.ShowtimeSeat {
	return domain.ShowtimeSeat{Seat: r.seats[seatID], ShowtimeID: showtimeID, State: st}
}

func (r *seatRepo) ListByShowtime(_ context.Context, showtimeID int64) ([]domain.ShowtimeSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ShowtimeSeat, 0, len(r.states[showtimeID]))
	for seatID, st := range r.states[showtimeID] {
		out = append(out, r.showtimeSeat(showtimeID, seatID, st))
	}
	sortSeats(out)

	return out, nil
}

func (r *seatRepo) GetByID(_ context.Context, showtimeID, seatID int64) (*domain.ShowtimeSeat, error) {
	const op = "memory.SeatRepo.GetByID"

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[showtimeID][seatID]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	seat := r.showtimeSeat(showtimeID, seatID, st)
	return &seat, nil
}

func (r *seatRepo) GetMany(_ context.Context, showtimeID int64, seatIDs []int64) ([]domain.ShowtimeSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ShowtimeSeat, 0, len(seatIDs))
	for _, id := range seatIDs {
		if st, ok := r.states[showtimeID][id]; ok {
			out = append(out, r.showtimeSeat(showtimeID, id, st))
		}
	}
	sortSeats(out)

	return out, nil
}

func (r *seatRepo) CompareAndSwap(
	_ context.Context,
	showtimeID, seatID int64,
	expect repository.Expect,
	next domain.SeatState,
) error {
	const op = "memory.SeatRepo.CompareAndSwap"

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[showtimeID][seatID]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	if !expect.Matches(st) {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	r.states[showtimeID][seatID] = next
	return nil
}

func (r *seatRepo) BulkInitialize(_ context.Context, showtimeID, screenID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	states, ok := r.states[showtimeID]
	if !ok {
		states = make(map[int64]domain.SeatState)
		r.states[showtimeID] = states
	}

	var created int64
	for id, seat := range r.seats {
		if seat.ScreenID != screenID || !seat.Active {
			continue
		}
		if _, exists := states[id]; exists {
			continue
		}
		states[id] = domain.Available{}
		created++
	}

	return created, nil
}

func (r *seatRepo) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]domain.ShowtimeSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ShowtimeSeat
	for showtimeID, states := range r.states {
		for seatID, st := range states {
			if exp, ok := domain.ExpiresAtOf(st); ok && !exp.After(now) {
				out = append(out, r.showtimeSeat(showtimeID, seatID, st))
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		ei, _ := domain.ExpiresAtOf(out[i].State)
		ej, _ := domain.ExpiresAtOf(out[j].State)
		return ei.Before(ej)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func sortSeats(seats []domain.ShowtimeSeat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Number < seats[j].Number
	})
}

type bookingRepo Store

func copyBooking(b domain.Booking) domain.Booking {
	b.SeatIDs = slices.Clone(b.SeatIDs)
	if b.TransactionID != nil {
		tx := *b.TransactionID
		b.TransactionID = &tx
	}
	return b
}

func (r *bookingRepo) Create(_ context.Context, b *domain.Booking) error {
	const op = "memory.BookingRepo.Create"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[b.ID]; ok {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}
	if _, ok := r.showtimes[b.ShowtimeID]; !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	r.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (r *bookingRepo) Get(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.BookingRepo.Get"

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	out := copyBooking(b)
	return &out, nil
}

func (r *bookingRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, copyBooking(b))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *bookingRepo) Transition(
	_ context.Context,
	id uuid.UUID,
	from domain.BookingStatus,
	upd repository.BookingUpdate,
) error {
	const op = "memory.BookingRepo.Transition"

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	if b.Status != from {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	if upd.Status != "" {
		b.Status = upd.Status
	}
	if upd.PaymentStatus != "" {
		b.PaymentStatus = upd.PaymentStatus
	}
	if upd.TransactionID != nil {
		tx := *upd.TransactionID
		b.TransactionID = &tx
	}
	b.UpdatedAt = time.Now()

	r.bookings[id] = b
	return nil
}

func (r *bookingRepo) SetPaymentStatus(_ context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	const op = "memory.BookingRepo.SetPaymentStatus"

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	b.PaymentStatus = status
	b.UpdatedAt = time.Now()
	r.bookings[id] = b
	return nil
}

type catalogRepo Store

func (r *catalogRepo) CreateMovie(_ context.Context, title string, durationMinutes int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := (*Store)(r).id()
	r.movies[id] = domain.Movie{ID: id, Title: title, DurationMinutes: durationMinutes}
	return id, nil
}

func (r *catalogRepo) GetMovie(_ context.Context, id int64) (*domain.Movie, error) {
	const op = "memory.CatalogRepo.GetMovie"

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.movies[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	return &m, nil
}

func (r *catalogRepo) CreateScreen(_ context.Context, name string) (int64, error) {
	const op = "memory.CatalogRepo.CreateScreen"

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sc := range r.screens {
		if sc.Name == name {
			return 0, fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
	}

	id := (*Store)(r).id()
	r.screens[id] = domain.Screen{ID: id, Name: name}
	return id, nil
}

func (r *catalogRepo) GetScreen(_ context.Context, id int64) (*domain.Screen, error) {
	const op = "memory.CatalogRepo.GetScreen"

	r.mu.Lock()
	defer r.mu.Unlock()

	sc, ok := r.screens[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	return &sc, nil
}

func (r *catalogRepo) BatchCreateSeats(_ context.Context, screenID int64, seats []domain.Seat) (int64, error) {
	const op = "memory.CatalogRepo.BatchCreateSeats"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.screens[screenID]; !ok {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	taken := make(map[string]bool)
	for _, s := range r.seats {
		if s.ScreenID == screenID {
			taken[fmt.Sprintf("%s-%d", s.Row, s.Number)] = true
		}
	}

	var created int64
	for _, s := range seats {
		key := fmt.Sprintf("%s-%d", s.Row, s.Number)
		if taken[key] {
			continue
		}
		taken[key] = true

		s.ID = (*Store)(r).id()
		s.ScreenID = screenID
		s.Active = true
		r.seats[s.ID] = s
		created++
	}

	return created, nil
}

func (r *catalogRepo) CreateShowtime(_ context.Context, st *domain.Showtime) (int64, error) {
	const op = "memory.CatalogRepo.CreateShowtime"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.movies[st.MovieID]; !ok {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	if _, ok := r.screens[st.ScreenID]; !ok {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	for _, other := range r.showtimes {
		if other.Active && other.ScreenID == st.ScreenID && other.Overlaps(*st) {
			return 0, fmt.Errorf("%s:%w", op, repository.ErrOverlap)
		}
	}

	created := *st
	created.ID = (*Store)(r).id()
	created.Active = true
	created.Prices = clonePrices(st.Prices)
	r.showtimes[created.ID] = created

	return created.ID, nil
}

func (r *catalogRepo) GetShowtime(_ context.Context, id int64) (*domain.Showtime, error) {
	const op = "memory.CatalogRepo.GetShowtime"

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.showtimes[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	st.Prices = clonePrices(st.Prices)
	return &st, nil
}

func (r *catalogRepo) UpdatePrices(_ context.Context, id int64, prices domain.PriceTable) error {
	const op = "memory.CatalogRepo.UpdatePrices"

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.showtimes[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	st.Prices = clonePrices(prices)
	r.showtimes[id] = st
	return nil
}

func (r *catalogRepo) DeactivateShowtime(_ context.Context, id int64) error {
	const op = "memory.CatalogRepo.DeactivateShowtime"

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.showtimes[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	st.Active = false
	r.showtimes[id] = st
	return nil
}

func clonePrices(p domain.PriceTable) domain.PriceTable {
	out := make(domain.PriceTable, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
