package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatBooked    SeatStatus = "booked"
)

// SeatState is one of Available, Reserved or Booked. The owning booking and
// the hold deadline only exist on the variants that carry them.
type SeatState interface {
	Status() SeatStatus
	seatState()
}

type Available struct{}

type Reserved struct {
	BookingID uuid.UUID
	ExpiresAt time.Time
}

type Booked struct {
	BookingID uuid.UUID
}

func (Available) Status() SeatStatus { return SeatAvailable }
func (Reserved) Status() SeatStatus  { return SeatReserved }
func (Booked) Status() SeatStatus    { return SeatBooked }

func (Available) seatState() {}
func (Reserved) seatState()  {}
func (Booked) seatState()    {}

// OwnerOf returns the booking that holds or owns the state, if any.
func OwnerOf(s SeatState) (uuid.UUID, bool) {
	switch v := s.(type) {
	case Reserved:
		return v.BookingID, true
	case Booked:
		return v.BookingID, true
	}
	return uuid.Nil, false
}

// ExpiresAtOf returns the hold deadline of a reserved state.
func ExpiresAtOf(s SeatState) (time.Time, bool) {
	if r, ok := s.(Reserved); ok {
		return r.ExpiresAt, true
	}
	return time.Time{}, false
}

// StateFromParts rebuilds a state from its stored columns.
func StateFromParts(status SeatStatus, bookingID *uuid.UUID, expiresAt *time.Time) (SeatState, error) {
	switch status {
	case SeatAvailable:
		return Available{}, nil
	case SeatReserved:
		if bookingID == nil || expiresAt == nil {
			return nil, fmt.Errorf("reserved seat without booking or deadline")
		}
		return Reserved{BookingID: *bookingID, ExpiresAt: *expiresAt}, nil
	case SeatBooked:
		if bookingID == nil {
			return nil, fmt.Errorf("booked seat without booking")
		}
		return Booked{BookingID: *bookingID}, nil
	}
	return nil, fmt.Errorf("unknown seat status %q", status)
}

// ShowtimeSeat is the per-showtime copy of a seat with its live state.
type ShowtimeSeat struct {
	Seat
	ShowtimeID int64
	State      SeatState
}

// DisplayStatus treats a hold whose deadline passed as available.
func (s ShowtimeSeat) DisplayStatus(now time.Time) SeatStatus {
	if exp, ok := ExpiresAtOf(s.State); ok && !exp.After(now) {
		return SeatAvailable
	}
	return s.State.Status()
}

type showtimeSeatJSON struct {
	Seat
	ShowtimeID int64      `json:"showtimeId"`
	Status     SeatStatus `json:"status"`
	BookingID  *uuid.UUID `json:"bookingId,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

func (s ShowtimeSeat) MarshalJSON() ([]byte, error) {
	w := showtimeSeatJSON{Seat: s.Seat, ShowtimeID: s.ShowtimeID, Status: SeatAvailable}
	if s.State != nil {
		w.Status = s.State.Status()
	}
	if id, ok := OwnerOf(s.State); ok {
		w.BookingID = &id
	}
	if exp, ok := ExpiresAtOf(s.State); ok {
		w.ExpiresAt = &exp
	}
	return json.Marshal(w)
}

func (s *ShowtimeSeat) UnmarshalJSON(b []byte) error {
	var w showtimeSeatJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	st, err := StateFromParts(w.Status, w.BookingID, w.ExpiresAt)
	if err != nil {
		return err
	}
	s.Seat = w.Seat
	s.ShowtimeID = w.ShowtimeID
	s.State = st
	return nil
}
