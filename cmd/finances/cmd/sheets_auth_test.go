package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func tokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "the-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func redirectWith(t *testing.T, consentURL string, params url.Values) {
	t.Helper()
	u, err := url.Parse(consentURL)
	require.NoError(t, err)
	q := u.Query()
	if !params.Has("state") {
		params.Set("state", q.Get("state"))
	}
	go func() {
		resp, err := http.Get(q.Get("redirect_uri") + "?" + params.Encode())
		if err == nil {
			resp.Body.Close()
		}
	}()
}

func TestAuthorizeExchangesCode(t *testing.T) {
	ts := tokenEndpoint(t)
	cfg := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example/auth", TokenURL: ts.URL},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tok, err := authorize(ctx, cfg, 0, func(consent string) {
		redirectWith(t, consent, url.Values{"code": {"the-code"}})
	})
	require.NoError(t, err)
	assert.Equal(t, "rt", tok.RefreshToken)
}

func TestAuthorizeRejectsStateMismatch(t *testing.T) {
	ts := tokenEndpoint(t)
	cfg := &oauth2.Config{ClientID: "id", Endpoint: oauth2.Endpoint{TokenURL: ts.URL}}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := authorize(ctx, cfg, 0, func(consent string) {
		redirectWith(t, consent, url.Values{"code": {"the-code"}, "state": {"forged"}})
	})
	assert.ErrorContains(t, err, "state mismatch")
}

func TestAuthorizeTimesOut(t *testing.T) {
	cfg := &oauth2.Config{ClientID: "id"}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := authorize(ctx, cfg, 0, func(string) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSheetsAuthNeedsClientFile(t *testing.T) {
	setupEnv(t)
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "")
	_, err := run(t, "sheets-auth")
	assert.ErrorContains(t, err, "GOOGLE_OAUTH_CLIENT_FILE")
}
