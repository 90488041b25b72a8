package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"finanz/internal/backend"
	"finanz/internal/config"
	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/services"
	"finanz/internal/storage"
)

// seed fills the configured backend with demo data: a family of fake
// members, six months of transactions in both ledgers and a card each.
func main() {
	members := flag.Int("members", 3, "family members to create")
	months := flag.Int("months", 6, "months of history to generate")
	flag.Parse()

	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentSeed)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Backend configuration failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", log.FieldError, err)
		os.Exit(1)
	}
	defer result.Cleanup()

	if err := run(ctx, result.Store, logger, *members, *months); err != nil {
		logger.Error("Seeding failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Seeding complete", "members", *members, "months", *months)
}

func run(ctx context.Context, store storage.Store, logger *log.Logger, memberCount, monthCount int) error {
	userIDs := make([]string, memberCount)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("demo-user-%d", i+1)
		profile := core.Profile{
			ID:        userIDs[i],
			Email:     faker.Email(),
			FullName:  faker.Name(),
			AvatarURL: faker.URL(),
		}
		if err := store.UpsertProfile(ctx, profile); err != nil {
			return fmt.Errorf("upsert profile %s: %w", profile.ID, err)
		}
	}

	families := services.NewFamilyService(store, logger)
	family, err := families.Create(ctx, userIDs[0], "Família Demo")
	if err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	for _, uid := range userIDs[1:] {
		if _, err := store.AddFamilyMember(ctx, core.FamilyMember{
			FamilyID: family.ID,
			UserID:   uid,
			Role:     core.RoleMember,
			JoinedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("add member %s: %w", uid, err)
		}
	}
	logger.Info("Family created", log.FieldFamilyID, family.ID)

	transactions := services.NewTransactionService(store, nil, logger)
	now := time.Now()
	for _, uid := range userIDs {
		for m := 0; m < monthCount; m++ {
			monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -m, 0)

			scopes := []storage.Scope{
				{UserID: uid},
				{UserID: uid, FamilyID: family.ID},
			}
			for _, scope := range scopes {
				if _, err := transactions.Create(ctx, scope, services.CreateTransactionInput{
					Kind:     core.Income,
					Amount:   decimal.NewFromInt(int64(2500 + rand.Intn(2000))),
					Category: "salario",
					Name:     "Salário",
					Date:     monthStart.AddDate(0, 0, 4),
				}); err != nil {
					return fmt.Errorf("seed income: %w", err)
				}

				for i := 0; i < 3+rand.Intn(5); i++ {
					category := core.ExpenseCategories[rand.Intn(len(core.ExpenseCategories))]
					if _, err := transactions.Create(ctx, scope, services.CreateTransactionInput{
						Kind:        core.Expense,
						Amount:      decimal.NewFromFloat(float64(rand.Intn(40000)+500) / 100),
						Category:    category,
						Name:        faker.Word(),
						Description: faker.Sentence(),
						Date:        monthStart.AddDate(0, 0, rand.Intn(27)),
					}); err != nil {
						return fmt.Errorf("seed expense: %w", err)
					}
				}
			}
		}

		if _, err := store.CreateCreditCard(ctx, core.CreditCard{
			UserID:      uid,
			Name:        fmt.Sprintf("Cartão %s", faker.Word()),
			LimitAmount: decimal.NewFromInt(int64(2000 + rand.Intn(8000))),
			ClosingDay:  1 + rand.Intn(28),
			DueDay:      1 + rand.Intn(28),
		}); err != nil {
			return fmt.Errorf("seed card: %w", err)
		}
	}

	return nil
}
