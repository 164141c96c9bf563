package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/talendar/internal/syncer"
)

func newSyncCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch changes from Google Calendar into the local cache",
		Long: `Fetch the calendar list, every calendar's changes since the last sync and
the colour palette, then save the cache. The first sync of a calendar, or a
sync after its token expired, is a full sync.

A failure in any calendar aborts the pass without saving.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			c, err := a.loadCache(ctx)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(ctx, nil)
			if err != nil {
				return err
			}

			res, err := engine.Sync(ctx, c)
			if err != nil {
				return describeSyncError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), syncSummary(res, c.Len(), a.store.Path()))
			return nil
		},
	}
}

func syncSummary(res syncer.Result, events int, path string) string {
	full := 0
	for _, r := range res.Calendars {
		if r.FullSync {
			full++
		}
	}
	return fmt.Sprintf("Synced %d calendars (%d full) in %s, %d events cached in %s",
		len(res.Calendars), full, res.Duration.Round(time.Millisecond), events, path)
}

func describeSyncError(err error) error {
	syncErr, ok := syncer.AsSyncError(err)
	if !ok {
		return err
	}
	if syncer.IsTransient(syncErr) {
		return fmt.Errorf("%w (temporary, try again later)", err)
	}
	if syncer.IsSyncTokenInvalid(syncErr) {
		return fmt.Errorf("%w (the next sync of this calendar will be a full sync)", err)
	}
	return err
}
