package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SeatClass string

const (
	SeatClassStandard SeatClass = "standard"
	SeatClassPremium  SeatClass = "premium"
	SeatClassVIP      SeatClass = "vip"
)

func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassStandard, SeatClassPremium, SeatClassVIP:
		return true
	}
	return false
}

type Movie struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
}

type Screen struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Seat is a physical seat of a screen.
type Seat struct {
	ID       int64     `json:"id"`
	ScreenID int64     `json:"screenId"`
	Row      string    `json:"row"`
	Number   int       `json:"number"`
	Class    SeatClass `json:"class"`
	Active   bool      `json:"active"`
}

// PriceTable maps a seat class to its price in cents.
type PriceTable map[SeatClass]int64

type Showtime struct {
	ID       int64      `json:"id"`
	MovieID  int64      `json:"movieId"`
	ScreenID int64      `json:"screenId"`
	StartsAt time.Time  `json:"startsAt"`
	EndsAt   time.Time  `json:"endsAt"`
	Prices   PriceTable `json:"prices"`
	Active   bool       `json:"active"`
}

// Overlaps reports whether the two showtimes share any instant of [start, end).
func (s Showtime) Overlaps(o Showtime) bool {
	return s.StartsAt.Before(o.EndsAt) && o.StartsAt.Before(s.EndsAt)
}

type BookingStatus string

const (
	BookingReserved  BookingStatus = "reserved"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Booking struct {
	ID            uuid.UUID     `json:"id"`
	UserID        int64         `json:"userId"`
	ShowtimeID    int64         `json:"showtimeId"`
	SeatIDs       []int64       `json:"seatIds"`
	TotalCents    int64         `json:"totalCents"`
	Currency      string        `json:"currency"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Status        BookingStatus `json:"status"`
	PaymentMethod string        `json:"paymentMethod"`
	TransactionID *string       `json:"transactionId,omitempty"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// OwnedBy reports whether the principal may act on the booking as its owner.
func (b *Booking) OwnedBy(userID int64) bool {
	return b.UserID == userID
}

// Role is the closed set of participant roles.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// ParseRole converts the wire form of a role. Unknown values are rejected.
func ParseRole(s string) (Role, error) {
	switch s {
	case "user", "":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
