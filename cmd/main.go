package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/tray-validation-backend/internal/app"
	httpMW "github.com/yungbote/tray-validation-backend/internal/http/middleware"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:   "trayval",
	Short: "Tray scan validation work service",
	Long: `trayval hands recognitions to annotators, walks them through the ordered
validation steps and records an immutable snapshot per completed step.

Settings come from the environment (see CONFIG_FILE for a file overlay).`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate, seed priorities if empty and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			a.Log.Info("Migrations applied", "driver", a.Cfg.DBDriver)
			return nil
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Abandon claims whose heartbeat is older than the staleness window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			n, err := a.Services.Engine.SweepStale(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "abandoned %d stale work log(s)\n", n)
			return nil
		})
	},
}

var (
	seedFile  string
	seedForce bool
)

var seedCmd = &cobra.Command{
	Use:   "seed-priorities",
	Short: "Load the validation step order from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			path := seedFile
			if path == "" {
				path = a.Cfg.PrioritySeedFile
			}
			if path == "" {
				return fmt.Errorf("--file or PRIORITY_SEED_FILE is required")
			}
			applied, err := a.SeedPriorities(ctx, path, seedForce)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintln(cmd.OutOrStdout(), "priorities already configured; use --force to replace")
			}
			return nil
		})
	},
}

var (
	tokenUser  string
	tokenAdmin bool
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for local use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(logger.Nop())
		if err != nil {
			return err
		}
		id := uuid.New()
		if tokenUser != "" {
			if id, err = uuid.Parse(tokenUser); err != nil {
				return fmt.Errorf("--user: %w", err)
			}
		}
		tok, err := httpMW.SignToken(cfg.JWTSecretKey, id, tokenAdmin, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML priority file (defaults to PRIORITY_SEED_FILE)")
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Replace existing priorities with a new version")

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id (random when empty)")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "Grant the admin role")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")

	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, seedCmd, tokenCmd)
}

func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
