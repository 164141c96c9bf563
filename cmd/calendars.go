package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/talendar/internal/cache"
)

func newCalendarsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars recorded by the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			c, err := a.loadCache(cmd.Context())
			if err != nil {
				return err
			}
			return printCalendars(cmd.OutOrStdout(), c)
		},
	}
}

func printCalendars(w io.Writer, c *cache.Cache) error {
	calendars := c.Calendars()
	if len(calendars) == 0 {
		_, err := fmt.Fprintln(w, "No calendars cached, run 'talendar sync' first.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tACCESS\tSYNCED\tID")
	for _, cal := range calendars {
		name := cal.DisplayName()
		if cal.Primary {
			name += " (primary)"
		}
		synced := "no"
		if _, ok := c.SyncToken(cal.ID); ok {
			synced = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, cal.AccessRole, synced, cal.ID)
	}
	return tw.Flush()
}
