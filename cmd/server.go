package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/example/teetime-scheduler/internal/auth"
	"github.com/example/teetime-scheduler/internal/bookings"
	"github.com/example/teetime-scheduler/internal/config"
	"github.com/example/teetime-scheduler/internal/db"
	"github.com/example/teetime-scheduler/internal/migrate"
	"github.com/example/teetime-scheduler/internal/notify"
	"github.com/example/teetime-scheduler/internal/scheduler"
	"github.com/example/teetime-scheduler/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool
	var schedule bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the JSON API + weekly booking scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			hashKey, blockKey, err := cfg.CookieKeys()
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return errors.Wrap(err, "db ping")
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			repo := bookings.NewRepo(d)
			authStore := auth.NewStore(d, hashKey, blockKey)
			r := buildRunner(cfg, d, log)

			gate := &sync.Mutex{}

			if schedule {
				s := &scheduler.Scheduler{
					Runner:   r,
					Store:    repo,
					Weekday:  cfg.TargetWeekday,
					Interval: cfg.PollInterval,
					Gate:     gate,
					Log:      log,
				}
				go func() { _ = s.Run(ctx) }()
			}

			ws := &web.Server{
				Auth:     authStore,
				Bookings: repo,
				Runner:   r,
				Migrate:  func(ctx context.Context) error { return migrate.Up(ctx, d) },
				Mailer: notify.SMTPMailer{
					Host: cfg.SMTPHost,
					Port: cfg.SMTPPort,
					User: cfg.EmailUser,
					Pass: cfg.EmailPass,
				},
				EmailUser: cfg.EmailUser,
				EmailPass: cfg.EmailPass,
				NotifyTo:  cfg.NotifyTo,
				Weekday:   cfg.TargetWeekday,
				Scheduled: schedule,
				Gate:      gate,
				Log:       log,
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().BoolVar(&schedule, "schedule", true, "run the weekly booking scheduler")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
