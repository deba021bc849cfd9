package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/teetime-scheduler/internal/bookings"
	"github.com/example/teetime-scheduler/internal/config"
	"github.com/example/teetime-scheduler/internal/db"
)

func newBookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Inspect persisted bookings (non-UI)",
	}
	cmd.AddCommand(newBookingsListCmd())
	return cmd
}

func newBookingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted booking records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			recs, err := bookings.NewRepo(d).List(ctx)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(os.Stdout, "id=%d date=%s time=%q players=%d holes=%d cart=%s status=%s created=%s\n",
					r.ID, r.Date, r.Time, r.Players, r.Holes, r.CartType, r.Status, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
