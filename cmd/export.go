package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/talendar/internal/export"
	"github.com/teemow/talendar/internal/store"
)

const defaultExportDays = 30

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		from, to string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write cached events as an iCalendar file",
		Long: `Write the cached events between --from and --to (inclusive) as an
iCalendar document. Dates accept the same forms as 'show'. The default range
is today and the following 30 days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			now := time.Now()
			start, err := parseDateArg(from, now, a.loc)
			if err != nil {
				return err
			}
			end := start.AddDays(defaultExportDays)
			if to != "" {
				if end, err = parseDateArg(to, now, a.loc); err != nil {
					return err
				}
			}
			if end.Before(start) {
				return fmt.Errorf("--to %s is before --from %s", end, start)
			}

			c, err := a.loadCache(cmd.Context())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			stats, err := export.WriteICS(&buf, c, start, end, export.Options{})
			if err != nil {
				return err
			}
			if stats.Skipped > 0 {
				a.logger.Warn("skipped events without a usable start", "count", stats.Skipped)
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := store.WriteFileAtomic(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events to %s\n", stats.Events, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date to export (default: today)")
	cmd.Flags().StringVar(&to, "to", "", "Last date to export (default: 30 days after --from)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
