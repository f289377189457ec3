package main

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dakshkarigar/marketplace-api/internal/app"
	"github.com/dakshkarigar/marketplace-api/internal/clock"
	"github.com/dakshkarigar/marketplace-api/internal/config"
	"github.com/dakshkarigar/marketplace-api/internal/storage/postgres"
)

type services struct {
	partnerRepo  *postgres.PartnerRepository
	orders       *app.OrderService
	partners     *app.PartnerService
	reassignment *app.ReassignmentService
}

// newServices builds the service graph on top of pool. publisher and recorder may be nil.
func newServices(pool *pgxpool.Pool, cfg config.Config, logger *slog.Logger, publisher app.EventPublisher, recorder app.CycleRecorder) services {
	clk := clock.NewSystem()
	orderRepo := postgres.NewOrderRepository(pool)
	partnerRepo := postgres.NewPartnerRepository(pool)
	policy := app.NewAssignmentPolicy(partnerRepo)

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithEventPublisher(publisher),
		app.WithCycleRecorder(recorder),
		app.WithConcurrency(cfg.Reassignment.Concurrency),
		app.WithCycleTimeout(cfg.Reassignment.CycleTimeout),
		app.WithDefaultExpiryBudget(cfg.Orders.DefaultExpiryBudget),
	}

	return services{
		partnerRepo:  partnerRepo,
		orders:       app.NewOrderService(orderRepo, policy, clk, opts...),
		partners:     app.NewPartnerService(partnerRepo, clk),
		reassignment: app.NewReassignmentService(orderRepo, policy, clk, opts...),
	}
}
