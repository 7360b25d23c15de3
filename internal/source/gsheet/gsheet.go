// Package gsheet reads import rows from a Google Sheets tab. The path given to
// OpenRows is the tab name; columns A to D hold title, type, value and
// category, and row 1 is the header.
package gsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finances/internal/ports"
)

const columns = "A:D"

var _ ports.TabularSource = (*Source)(nil)

// Credentials selects how to reach the Sheets API. A service account (JSON
// wins over File) takes precedence over an OAuth client and saved user token.
type Credentials struct {
	JSON string
	File string

	OAuthClientFile string
	OAuthTokenFile  string
}

// values is the slice of the Sheets API this package depends on.
type values interface {
	get(ctx context.Context, rng string) ([][]interface{}, error)
	clear(ctx context.Context, rng string) error
}

type Source struct {
	api           values
	spreadsheetID string
}

func New(ctx context.Context, spreadsheetID string, creds Credentials) (*Source, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Source{api: &sheetsValues{svc: svc, spreadsheetID: spreadsheetID}, spreadsheetID: spreadsheetID}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, or a saved OAuth user token when no service account is set.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case strings.TrimSpace(creds.JSON) != "":
		credentialsJSON = []byte(creds.JSON)
	case strings.TrimSpace(creds.File) != "":
		credentialsJSON, err = os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	case strings.TrimSpace(creds.OAuthClientFile) != "" && strings.TrimSpace(creds.OAuthTokenFile) != "":
		return newOAuthSheetsService(ctx, creds.OAuthClientFile, creds.OAuthTokenFile)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// OpenRows implements ports.TabularSource. The whole tab is fetched in one
// call; the header row is dropped.
func (s *Source) OpenRows(ctx context.Context, sheet string) (ports.RowReader, error) {
	rng, err := dataRange(sheet, 1)
	if err != nil {
		return nil, err
	}
	raw, err := s.api.get(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows := parseValues(raw)
	if len(rows) > 0 {
		rows = rows[1:]
	}
	slog.InfoContext(ctx, "Read rows from Google Sheets", "range", rng, "rows", len(rows))
	return &sliceRows{rows: rows}, nil
}

// Release implements ports.TabularSource by clearing every row below the
// header, so the next import starts from an empty tab.
func (s *Source) Release(ctx context.Context, sheet string) error {
	rng, err := dataRange(sheet, 2)
	if err != nil {
		return err
	}
	if err := s.api.clear(ctx, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Cleared imported rows", "range", rng)
	return nil
}

func dataRange(sheet string, fromRow int) (string, error) {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return "", errors.New("missing sheet name")
	}
	// Quote tab names so spaces and digits survive A1 notation.
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if fromRow <= 1 {
		return quoted + "!" + columns, nil
	}
	return fmt.Sprintf("%s!A%d:D", quoted, fromRow), nil
}

// parseValues converts API cells to trimmed strings. Numbers come back
// formatted, so "12.5" and 12.5 read the same.
func parseValues(in [][]interface{}) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

type sliceRows struct {
	rows [][]string
	next int
}

func (r *sliceRows) Read() ([]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.next]
	r.next++
	return row, nil
}

func (r *sliceRows) Close() error { return nil }

type sheetsValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (v *sheetsValues) get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(v.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v *sheetsValues) clear(ctx context.Context, rng string) error {
	_, err := v.svc.Spreadsheets.Values.Clear(v.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
