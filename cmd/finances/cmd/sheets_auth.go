package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"finances/internal/source/gsheet"
)

func newSheetsAuthCmd(rt *runtime) *cobra.Command {
	var (
		port    int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize sheet imports with a Google user account",
		Long: `Run the OAuth consent flow for the client in GOOGLE_OAUTH_CLIENT_FILE and
save the resulting token to GOOGLE_OAUTH_TOKEN_FILE. The OAuth client must
allow http://localhost:<port>/callback as a redirect URI.

Not needed when a service account is configured.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.GoogleOAuthClientFile == "" {
				return errors.New("set GOOGLE_OAUTH_CLIENT_FILE to the OAuth client JSON")
			}
			oauthCfg, err := gsheet.OAuthConfig(rt.cfg.GoogleOAuthClientFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			tok, err := authorize(ctx, oauthCfg, port, func(url string) {
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n", url)
			})
			if err != nil {
				return err
			}
			if err := gsheet.SaveToken(rt.cfg.GoogleOAuthTokenFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", rt.cfg.GoogleOAuthTokenFile)
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 8085, "local port for the OAuth redirect")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for consent")
	return cmd
}

// authorize serves the redirect on localhost, hands the consent URL to show
// and exchanges the returned code for a token.
func authorize(ctx context.Context, cfg *oauth2.Config, port int, show func(url string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", ln.Addr().(*net.TCPAddr).Port)
	state := uuid.NewString()

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("oauth state mismatch")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	show(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization not completed: %w", ctx.Err())
	}
}
