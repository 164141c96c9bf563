package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/talendar/internal/cache"
)

func newShowCmd(opts *globalOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "show [date]",
		Short: "Print the cached events of a day",
		Long: `Print the cached events of a day without contacting Google. The date is
YYYY-MM-DD, today, tomorrow or yesterday (default: today).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			date, err := parseDateArg(arg, time.Now(), a.loc)
			if err != nil {
				return err
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			c, err := a.loadCache(cmd.Context())
			if err != nil {
				return err
			}
			printDays(cmd.OutOrStdout(), c, date, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 1, "Number of days to print")
	return cmd
}

// parseDateArg resolves a date argument relative to now in loc.
func parseDateArg(arg string, now time.Time, loc *time.Location) (cache.Date, error) {
	today := cache.DateOf(now.In(loc))
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := cache.ParseDate(arg)
	if err != nil {
		return cache.Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", arg, err)
	}
	return d, nil
}

func printDays(w io.Writer, c *cache.Cache, from cache.Date, days int) {
	if c.Len() == 0 && len(c.Calendars()) == 0 {
		fmt.Fprintln(w, "The cache is empty, run 'talendar sync' first.")
		return
	}

	names := make(map[string]string)
	for _, cal := range c.Calendars() {
		names[cal.ID] = cal.DisplayName()
	}
	palette := c.Colors()

	for i := range days {
		date := from.AddDays(i)
		events, _ := c.EventsOn(date)
		fmt.Fprintf(w, "%s %s\n", date, date.In(c.Location()).Weekday())
		if len(events) == 0 {
			fmt.Fprintln(w, "  no events")
			continue
		}
		for _, e := range events {
			line := fmt.Sprintf("  %-24s %s", e.StartString(c.Location()), summaryOf(e))
			if name := names[e.CalendarID]; name != "" {
				line += "  [" + name + "]"
			}
			line += "  " + cache.EventColor(e, palette)
			if e.IsMultiDay(c.Location()) {
				line += "  (multi-day)"
			}
			fmt.Fprintln(w, line)
		}
	}
}

func summaryOf(e cache.Event) string {
	if e.Summary == "" {
		return "(no title)"
	}
	return e.Summary
}
