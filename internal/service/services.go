package service

import (
	"log/slog"

	"github.com/kirinyoku/cinebook/internal/notify"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/realtime"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/admin"
	"github.com/kirinyoku/cinebook/internal/service/booking"
	"github.com/kirinyoku/cinebook/internal/service/hold"
	"github.com/kirinyoku/cinebook/internal/service/query"
)

type Services struct {
	Holds   *hold.Manager
	Booking *booking.Service
	Query   *query.Service
	Admin   *admin.Service
}

type Config struct {
	Hold    hold.Config
	Booking booking.Config
	Query   query.Config
	Admin   admin.Config
}

// Deps are the collaborators shared by the services. Cache and Limiter are
// nil when Redis is disabled.
type Deps struct {
	Store       repository.TxRunner
	Cache       *redisrepo.Cache
	Limiter     *redisrepo.SlidingWindowLimiter
	Payments    payment.Processor
	Broadcaster realtime.Broadcaster
	Notifier    *notify.Notifier
	Logger      *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	holds := hold.NewManager(d.Store.Seats(), d.Logger.With(slog.String("component", "holds")), cfg.Hold)

	bd := booking.Deps{
		Store:       d.Store,
		Holds:       holds,
		Payments:    d.Payments,
		Broadcaster: d.Broadcaster,
		Notifier:    d.Notifier,
		Logger:      d.Logger.With(slog.String("component", "booking")),
	}
	// Typed nil pointers must not reach the optional interfaces.
	if d.Cache != nil {
		bd.Cache = d.Cache
	}
	if d.Limiter != nil {
		bd.Limiter = d.Limiter
	}

	var inv admin.Invalidator
	if d.Cache != nil {
		inv = d.Cache
	}

	return &Services{
		Holds:   holds,
		Booking: booking.New(bd, cfg.Booking),
		Query:   query.New(d.Store, d.Cache, cfg.Query),
		Admin:   admin.New(d.Store, inv, d.Logger.With(slog.String("component", "admin")), cfg.Admin),
	}
}
