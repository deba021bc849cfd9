package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/teetime-scheduler/internal/bookings"
	"github.com/example/teetime-scheduler/internal/config"
	"github.com/example/teetime-scheduler/internal/db"
	"github.com/example/teetime-scheduler/internal/migrate"
	"github.com/example/teetime-scheduler/internal/notify"
	"github.com/example/teetime-scheduler/internal/portal"
	"github.com/example/teetime-scheduler/internal/runner"
	"github.com/example/teetime-scheduler/internal/teetime"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one booking run now and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			r := buildRunner(cfg, d, log)
			out := r.Run(ctx)

			b, err := json.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(b))

			if out.Status == teetime.StatusFailed {
				return errors.Newf("booking run failed: %s", out.ErrorDetail)
			}
			return nil
		},
	}
}

func buildRunner(cfg config.Config, d *db.DB, log *zap.Logger) *runner.Runner {
	mailer := notify.SMTPMailer{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.EmailUser,
		Pass: cfg.EmailPass,
	}
	return &runner.Runner{
		OpenBrowser: func(ctx context.Context) (portal.Browser, error) {
			return portal.OpenChrome(ctx, portal.ChromeOptions{Headless: cfg.Headless}, log)
		},
		Store: bookings.NewRepo(d),
		Notifier: &notify.Notifier{
			Mailer: mailer,
			To:     cfg.NotifyTo,
			Course: cfg.CourseName,
			League: cfg.LeagueFilter,
			Log:    log,
		},
		Creds:     portal.NoCredentials{},
		Policy:    teetime.DefaultPolicy(),
		PortalURL: cfg.PortalURL,
		League:    cfg.LeagueFilter,
		Weekday:   cfg.TargetWeekday,
		Players:   cfg.Players,
		Holes:     cfg.Holes,
		Cart:      cfg.Cart,
		Settle:    cfg.SettleDelay,
		Timeout:   cfg.RunTimeout,
		Log:       log,
	}
}
