package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/spf13/cobra"

	"github.com/dakshkarigar/marketplace-api/internal/app"
	"github.com/dakshkarigar/marketplace-api/internal/domain"
	"github.com/dakshkarigar/marketplace-api/migrations"
)

var seedCategories = []string{"plumbing", "electrical", "cleaning", "carpentry", "painting"}

var seedCities = []string{"Pune", "Mumbai", "Bengaluru"}

var seedDocumentKinds = []string{"government_id", "skill_certificate", "address_proof"}

type seedOptions struct {
	partners int
	orders   int
	seed     int64
}

func newSeedCmd(c *cli) *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo partners, documents and orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			ctx, cancel := contextWithTimeout(cmd, time.Minute)
			defer cancel()

			pool, err := openPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := migrations.Apply(ctx, pool); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			svcs := newServices(pool, cfg, logger, nil, nil)
			partners, orders, err := seed(ctx, svcs, opts)
			if err != nil {
				return err
			}
			logger.Info("seeded demo data", "partners", partners, "orders", orders)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.partners, "partners", 20, "number of partners to create")
	cmd.Flags().IntVar(&opts.orders, "orders", 10, "number of orders to create")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "random seed")
	return cmd
}

// seed creates partners (a quarter of them still awaiting verification, each with one pending
// document) and then orders, which are assigned immediately when a matching partner exists.
func seed(ctx context.Context, svcs services, opts seedOptions) (int, int, error) {
	fake := faker.NewWithSeed(rand.NewSource(opts.seed))
	now := time.Now().UTC()

	for i := 0; i < opts.partners; i++ {
		partner := domain.Partner{
			ID:           uuid.NewString(),
			Name:         fake.Person().Name(),
			Category:     seedCategories[fake.IntBetween(0, len(seedCategories)-1)],
			Location:     seedCities[fake.IntBetween(0, len(seedCities)-1)],
			Available:    fake.IntBetween(0, 9) < 8,
			Verification: domain.VerificationVerified,
			LastActiveAt: fake.Time().TimeBetween(now.Add(-72*time.Hour), now).UTC(),
			CreatedAt:    now,
		}
		pending := i%4 == 3
		if pending {
			partner.Verification = domain.VerificationPending
			partner.LastActiveAt = time.Time{}
		}
		if err := svcs.partnerRepo.CreatePartner(ctx, partner); err != nil {
			return i, 0, fmt.Errorf("seed partner: %w", err)
		}
		if !pending {
			continue
		}

		doc := domain.PartnerDocument{
			ID:         uuid.NewString(),
			PartnerID:  partner.ID,
			Kind:       seedDocumentKinds[fake.IntBetween(0, len(seedDocumentKinds)-1)],
			URL:        fake.Internet().URL(),
			Status:     domain.VerificationPending,
			UploadedAt: now,
		}
		if err := svcs.partnerRepo.CreateDocument(ctx, doc); err != nil {
			return i, 0, fmt.Errorf("seed document: %w", err)
		}
	}

	for i := 0; i < opts.orders; i++ {
		_, err := svcs.orders.CreateOrder(ctx, app.CreateOrderInput{
			CustomerID: uuid.NewString(),
			Category:   seedCategories[fake.IntBetween(0, len(seedCategories)-1)],
			Location:   seedCities[fake.IntBetween(0, len(seedCities)-1)],
		})
		if err != nil {
			return opts.partners, i, fmt.Errorf("seed order: %w", err)
		}
	}
	return opts.partners, opts.orders, nil
}
