package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/talendar/internal/google"
	"github.com/teemow/talendar/internal/logging"
)

func newAuthCmd(opts *globalOptions) *cobra.Command {
	var (
		noBrowser  bool
		listenAddr string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize talendar to read your Google calendars",
		Long: `Run the OAuth consent flow and store the token next to the cache.

The OAuth client secret (a "Desktop app" client downloaded from the Google
Cloud console) is read from client_secret.json in the data directory unless
client_secret_path is configured. The consent page redirects to a temporary
listener on the loopback interface.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			conf, err := google.LoadConfig(a.cfg.ClientSecretPath)
			if err != nil {
				return err
			}

			var presenter google.URLPresenter = google.BrowserPresenter{W: cmd.ErrOrStderr()}
			if noBrowser {
				presenter = google.WriterPresenter{W: cmd.ErrOrStderr()}
			}
			tokens := google.NewFileTokenStore(a.cfg.TokenPath)
			auth := google.NewAuthenticator(conf, tokens, presenter,
				google.WithListenAddr(listenAddr),
				google.WithAuthLogger(logging.NewSlogAdapter(a.logger)))

			if _, err := auth.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token stored in %s\n", tokens.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Only print the consent URL")
	cmd.Flags().StringVar(&listenAddr, "listen", google.DefaultListenAddr, "Loopback address for the OAuth redirect")
	return cmd
}
