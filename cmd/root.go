package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
}

// globalOptions holds the persistent flags. Flags left unset fall back to
// the environment, the config file and the defaults, in that order.
type globalOptions struct {
	configPath     string
	dataDir        string
	cachePath      string
	cacheBackend   string
	timeZone       string
	logLevel       string
	parallelism    int
	requestTimeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "talendar",
		Short: "Keeps a local cache of your Google calendars in sync",
		Long: `talendar mirrors the events of every calendar in your Google calendar list
into a local cache using incremental sync tokens, so views can be rendered
offline and later syncs only transfer what changed.

Run 'talendar auth' once to authorize access, then 'talendar sync'.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(`{{printf "talendar version %s\n" .Version}}`)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: <user config dir>/talendar/config.yaml)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory for the cache and credentials. Can also use TALENDAR_DATA_DIR env var.")
	flags.StringVar(&opts.cachePath, "cache", "", "Cache file path. Can also use TALENDAR_CACHE_PATH env var.")
	flags.StringVar(&opts.cacheBackend, "cache-backend", "", "Cache backend: json or bolt. Can also use TALENDAR_CACHE_BACKEND env var.")
	flags.StringVar(&opts.timeZone, "time-zone", "", "IANA time zone for bucketing and requests (default: local). Can also use TALENDAR_TIME_ZONE env var.")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error. Can also use TALENDAR_LOG_LEVEL env var.")
	flags.IntVar(&opts.parallelism, "parallelism", 0, "Calendars synced concurrently (default: 1). Can also use TALENDAR_PARALLELISM env var.")
	flags.DurationVar(&opts.requestTimeout, "request-timeout", 0, "Timeout for each Google API request (default: 30s). Can also use TALENDAR_REQUEST_TIMEOUT env var.")

	cmd.AddCommand(
		newSyncCmd(opts),
		newShowCmd(opts),
		newCalendarsCmd(opts),
		newExportCmd(opts),
		newWatchCmd(opts),
		newAuthCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	// If no subcommand is provided, run the sync command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "sync")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
