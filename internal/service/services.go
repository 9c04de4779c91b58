package service

import (
	"log/slog"

	"github.com/kirinyoku/tix-booking/internal/codes"
	"github.com/kirinyoku/tix-booking/internal/events"
	"github.com/kirinyoku/tix-booking/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/tix-booking/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service/admin"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/checkin"
	"github.com/kirinyoku/tix-booking/internal/service/query"
)

type Services struct {
	Booking *booking.Service
	CheckIn *checkin.Service
	Query   *query.Service
	Admin   *admin.Service
}

type Config struct {
	Booking booking.Config
	Query   query.Config
}

// Backend is the set of storage ports every service needs.
type Backend struct {
	Booking booking.Repos
	CheckIn checkin.Store
	Query   query.Store
	Admin   admin.Store
}

type pgQuery struct {
	*postgresrepo.CatalogRepo
	*postgresrepo.QueryRepo
	*postgresrepo.CheckInRepo
}

type pgAdmin struct {
	*postgresrepo.AdminRepo
	*postgresrepo.CatalogRepo
}

func PostgresBackend(store *postgresrepo.Store) Backend {
	return Backend{
		Booking: booking.Repos{
			Catalog:   store.Catalog(),
			Inventory: store.Inventory(),
			Ledger:    store.Ledger(),
			Bookings:  store.Bookings(),
		},
		CheckIn: store.CheckIn(),
		Query:   pgQuery{store.Catalog(), store.Query(), store.CheckIn()},
		Admin:   pgAdmin{store.Admin(), store.Catalog()},
	}
}

func MemoryBackend(store *memory.Store) Backend {
	return Backend{
		Booking: booking.Repos{
			Catalog:   store,
			Inventory: store,
			Ledger:    store,
			Bookings:  store,
		},
		CheckIn: store,
		Query:   store,
		Admin:   store,
	}
}

func NewServices(
	backend Backend,
	cache *redisrepo.Cache,
	pub events.Publisher,
	log *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Booking: booking.New(backend.Booking, codes.NewIssuer(), cache, pub, log, cfg.Booking),
		CheckIn: checkin.New(backend.CheckIn, cache, pub, log),
		Query:   query.New(backend.Query, cache, cfg.Query),
		Admin:   admin.New(backend.Admin, cache, log),
	}
}
