// Package payment holds the payment collaborator used to settle bookings.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChargeRequest describes one charge against the customer's payment method.
type ChargeRequest struct {
	BookingID   uuid.UUID
	AmountCents int64
	Currency    string
	Method      string
	Details     map[string]string
}

// ChargeResult is the outcome reported by the processor. A decline is a
// result with Success false, not an error.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Message       string
}

type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// DeclineToken makes the simulated processor decline a charge when it is
// passed as the "token" detail.
const DeclineToken = "decline"

type SimulatedConfig struct {
	Delay time.Duration
}

// Simulated approves every charge except those carrying DeclineToken or a
// non-positive amount.
type Simulated struct {
	cfg SimulatedConfig
}

func NewSimulated(cfg SimulatedConfig) *Simulated {
	return &Simulated{cfg: cfg}
}

func (s *Simulated) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	const op = "payment.Simulated.Charge"

	if s.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s:%w", op, ctx.Err())
		case <-time.After(s.cfg.Delay):
		}
	}

	if req.AmountCents <= 0 {
		return &ChargeResult{Message: "invalid amount"}, nil
	}

	if strings.EqualFold(req.Details["token"], DeclineToken) {
		return &ChargeResult{Message: "card declined"}, nil
	}

	return &ChargeResult{
		Success:       true,
		TransactionID: fmt.Sprintf("sim_txn_%s", uuid.NewString()[:8]),
		Message:       "approved",
	}, nil
}
