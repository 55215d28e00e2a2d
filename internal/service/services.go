package service

import (
	"github.com/yuriwinchest/arena-courts/internal/calendar"
	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
	redisrepo "github.com/yuriwinchest/arena-courts/internal/repository/redis"
	redisx "github.com/yuriwinchest/arena-courts/internal/redis"
	"github.com/yuriwinchest/arena-courts/internal/service/admin"
	"github.com/yuriwinchest/arena-courts/internal/service/availability"
	"github.com/yuriwinchest/arena-courts/internal/service/booking"
	"github.com/yuriwinchest/arena-courts/internal/service/query"
)

type Services struct {
	Booking      *booking.Service
	Availability *availability.Service
	Query        *query.Service
	Admin        *admin.Service
}

type Config struct {
	Booking      booking.Config
	Availability availability.Config
	Query        query.Config
}

func NewServices(
	store repository.Store,
	cal *calendar.Calendar,
	cache *redisrepo.Cache,
	pubsub *redisx.AvailabilityPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	clock domain.Clock,
	cfg Config,
) *Services {
	if clock == nil {
		clock = domain.SystemClock{}
	}

	return &Services{
		Booking:      booking.New(store, cal, cache, pubsub, limiter, clock, cfg.Booking),
		Availability: availability.New(store, cal, cache, clock, cfg.Availability),
		Query:        query.New(store, cache, clock, cfg.Query),
		Admin:        admin.New(store, cache),
	}
}
