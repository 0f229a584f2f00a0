package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the clinic database with development data",
	}
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(availabilityCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg    config.Config
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Env, cfg.LogLevel, "seed")

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.ConnectPostgres(connCtx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &env{cfg: cfg, pool: pool, logger: logger}, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			n, err := db.Migrate(cmd.Context(), e.pool)
			if err != nil {
				return err
			}
			e.logger.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Insert fake doctors, mothers and an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctors, _ := cmd.Flags().GetInt("doctors")
			mothers, _ := cmd.Flags().GetInt("mothers")
			admins, _ := cmd.Flags().GetInt("admins")
			seed, _ := cmd.Flags().GetInt64("seed")

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			if seed != 0 {
				gofakeit.Seed(seed)
			}

			dir := identity.NewPgDirectory(e.pool, e.cfg.Location)
			for _, batch := range []struct {
				role  identity.Role
				count int
			}{
				{identity.RoleDoctor, doctors},
				{identity.RoleMother, mothers},
				{identity.RoleAdmin, admins},
			} {
				if err := seedUsers(cmd.Context(), dir, batch.role, batch.count); err != nil {
					return fmt.Errorf("seed %ss: %w", batch.role, err)
				}
				e.logger.Info().Str("role", string(batch.role)).Int("count", batch.count).Msg("users seeded")
			}
			return nil
		},
	}
	cmd.Flags().Int("doctors", 10, "Number of doctors to create")
	cmd.Flags().Int("mothers", 200, "Number of mothers to create")
	cmd.Flags().Int("admins", 1, "Number of admins to create")
	cmd.Flags().Int64("seed", 0, "Fake data seed, 0 for random")
	return cmd
}

func seedUsers(ctx context.Context, dir *identity.PgDirectory, role identity.Role, count int) error {
	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		email := strings.ToLower(fmt.Sprintf("%s.%s.%d@%s", first, last, i, gofakeit.DomainName()))

		err := dir.InsertUser(ctx, identity.User{
			ID:        uuid.New(),
			FirstName: first,
			LastName:  last,
			Email:     &email,
			Role:      role,
			IsActive:  true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func availabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "availability",
		Short: "Give every active doctor the default Monday to Friday hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			dir := identity.NewPgDirectory(e.pool, e.cfg.Location)
			svc := scheduling.NewService(scheduling.NewPgRepository(e.pool), dir, nil, e.cfg,
				scheduling.WithLogger(e.logger))

			doctors, err := dir.ActiveDoctors(cmd.Context())
			if err != nil {
				return fmt.Errorf("list doctors: %w", err)
			}

			for _, d := range doctors {
				for day := scheduling.Monday; day <= scheduling.Friday; day++ {
					if _, err := svc.EnsureDefault(cmd.Context(), d.ID, day); err != nil {
						return fmt.Errorf("%s %s: %w", d.DisplayName(), day, err)
					}
				}
			}
			e.logger.Info().Int("doctors", len(doctors)).Msg("availability seeded")
			return nil
		},
	}
}
