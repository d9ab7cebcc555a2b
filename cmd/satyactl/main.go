package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/internal/config"
	pgInfra "github.com/fastygo/satyalens/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/satyalens/internal/infrastructure/redis"
	"github.com/fastygo/satyalens/pkg/logger"
	"github.com/fastygo/satyalens/repository"
	"github.com/fastygo/satyalens/repository/postgres"
	redisRepo "github.com/fastygo/satyalens/repository/redis"
	"github.com/fastygo/satyalens/usecase/settings"
)

// operatorID is recorded as the admin on settings written from the CLI.
const operatorID = "satyactl"

type app struct {
	cfg     *config.Config
	log     *zap.Logger
	out     io.Writer
	format  string
	timeout time.Duration

	pool  *pgxpool.Pool
	redis *goRedis.Client
}

func main() {
	a := &app{out: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "satyactl",
		Short:         "Operator tooling for SatyaLens (roles, guest flags, settings, migrations)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.format != "json" && a.format != "text" {
				return fmt.Errorf("--out must be json or text")
			}
			a.cfg = config.LoadTooling()
			log, err := logger.New(logger.Config{Level: a.cfg.Logger.Level, Encoding: "console", Output: os.Stderr})
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.format, "out", "text", "Output format: json|text")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "Per-command deadline")

	root.AddCommand(
		newGrantAdminCmd(a),
		newRevokeAdminCmd(a),
		newResetGuestCmd(a),
		newSettingsCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func newGrantAdminCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <user-id>",
		Short: "Give a user the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			users, err := a.users(ctx)
			if err != nil {
				return err
			}
			if err := users.GrantRole(ctx, args[0], domain.RoleAdmin); err != nil {
				return err
			}
			a.log.Info("admin role granted", zap.String("user_id", args[0]))
			return a.print(map[string]any{"user_id": args[0], "role": domain.RoleAdmin, "granted": true})
		},
	}
}

func newRevokeAdminCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-admin <user-id>",
		Short: "Remove the admin role from a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			users, err := a.users(ctx)
			if err != nil {
				return err
			}
			if err := users.RevokeRole(ctx, args[0], domain.RoleAdmin); err != nil {
				if domain.IsDomainError(err, domain.ErrCodeNotFound) {
					return fmt.Errorf("user %s is not an admin", args[0])
				}
				return err
			}
			a.log.Info("admin role revoked", zap.String("user_id", args[0]))
			return a.print(map[string]any{"user_id": args[0], "role": domain.RoleAdmin, "granted": false})
		},
	}
}

func newResetGuestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-guest <device-id>",
		Short: "Clear the free-scan flag of an anonymous device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			usage, err := a.usage(ctx)
			if err != nil {
				return err
			}
			if err := usage.Reset(ctx, args[0]); err != nil {
				return err
			}
			a.log.Info("guest flag reset", zap.String("device_id", args[0]))
			return a.print(map[string]any{"device_id": args[0], "reset": true})
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	settingsCmd := &cobra.Command{Use: "settings", Short: "Read or write admin toggles"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			store, err := a.settings(ctx)
			if err != nil {
				return err
			}
			list, err := store.List(ctx)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.print(list)
			}
			for _, s := range list {
				fmt.Fprintf(a.out, "%s=%s\n", s.Key, s.Value)
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update one setting (free_weekly_limit, ai_enabled)",
		Long: `Update one setting (free_weekly_limit, ai_enabled).

The write goes straight to Postgres. A running server caches settings for
SETTINGS_CACHE_TTL (30s by default) and may keep serving the old value until
its cache entry expires.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			store, err := a.settings(ctx)
			if err != nil {
				return err
			}
			session := &domain.AdminSession{UserID: operatorID, GrantedAt: time.Now()}
			if err := store.Set(ctx, session, args[0], args[1]); err != nil {
				return err
			}
			return a.print(domain.Setting{Key: args[0], Value: args[1]})
		},
	}

	settingsCmd.AddCommand(listCmd, setCmd)
	return settingsCmd
}

func newMigrateCmd(a *app) *cobra.Command {
	migrateCmd := &cobra.Command{Use: "migrate", Short: "Apply or roll back schema migrations"}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return pgInfra.Migrate(a.cfg, a.log, false)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return pgInfra.Migrate(a.cfg, a.log, true)
			},
		},
	)
	return migrateCmd
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func (a *app) users(ctx context.Context) (repository.UserRepository, error) {
	if err := a.connectPostgres(ctx); err != nil {
		return nil, err
	}
	return postgres.NewUserRepository(a.pool), nil
}

func (a *app) settings(ctx context.Context) (*settings.Store, error) {
	if err := a.connectPostgres(ctx); err != nil {
		return nil, err
	}
	return settings.New(postgres.NewSettingRepository(a.pool), 0, a.log), nil
}

func (a *app) usage(ctx context.Context) (repository.UsageRepository, error) {
	if a.redis == nil {
		client, err := redisInfra.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = client
	}
	return redisRepo.NewUsageRepository(a.redis), nil
}

func (a *app) connectPostgres(ctx context.Context) error {
	if a.pool != nil {
		return nil
	}
	pool, err := pgInfra.NewPool(ctx, a.cfg.Database, a.log)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	a.pool = pool
	return nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) print(v any) error {
	if a.format == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	switch t := v.(type) {
	case domain.Setting:
		_, err := fmt.Fprintf(a.out, "%s=%s\n", t.Key, t.Value)
		return err
	case map[string]any:
		_, err := fmt.Fprintln(a.out, "ok")
		return err
	default:
		_, err := fmt.Fprintf(a.out, "%v\n", v)
		return err
	}
}
