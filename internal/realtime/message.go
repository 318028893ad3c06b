package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
)

// Topic events.
const (
	EventSeatsUpdated     = "seats_updated"
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
)

// Direct events.
const (
	EventBookingReserved = "booking_reserved"
	EventBookingExpiring = "booking_expiring"
	EventBookingExpired  = "booking_expired"
)

// Protocol events.
const (
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventError        = "error"
)

const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
)

const topicPrefix = "showtime:"

// Topic is the channel every viewer of a showtime subscribes to.
func Topic(showtimeID int64) string {
	return topicPrefix + strconv.FormatInt(showtimeID, 10)
}

func ParseTopic(topic string) (int64, bool) {
	rest, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Envelope is the frame sent to clients.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Ts    int64           `json:"ts"`
}

// ClientMessage is the frame accepted from clients.
type ClientMessage struct {
	Type       string `json:"type"`
	ShowtimeID int64  `json:"showtimeId"`
}

type SeatsUpdated struct {
	ShowtimeID int64             `json:"showtimeId"`
	SeatIDs    []int64           `json:"seatIds"`
	Status     domain.SeatStatus `json:"status"`
}

type BookingNotice struct {
	BookingID  uuid.UUID            `json:"bookingId"`
	ShowtimeID int64                `json:"showtimeId"`
	SeatIDs    []int64              `json:"seatIds"`
	Status     domain.BookingStatus `json:"status"`
}

type BookingReserved struct {
	BookingID uuid.UUID `json:"bookingId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type BookingExpiring struct {
	BookingID   uuid.UUID `json:"bookingId"`
	MinutesLeft int       `json:"minutesLeft"`
}

type BookingExpired struct {
	BookingID uuid.UUID `json:"bookingId"`
}

type Subscription struct {
	ShowtimeID int64 `json:"showtimeId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Broadcaster delivers events to topic subscribers and to every connection
// of a user. Delivery is best effort: offline targets are dropped.
type Broadcaster interface {
	SendToUser(userID int64, event string, payload any)
	SendToTopic(topic, event string, payload any)
}

func encode(event string, data json.RawMessage, ts time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data, Ts: ts.Unix()})
}

func marshalPayload(payload any) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("realtime: marshal payload: %w", err)
	}
	return b, nil
}
