package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finances/internal/core"
	"finances/internal/services"
)

const maxJSONBodyBytes = 64 << 10

type createTransactionPayload struct {
	Title    string          `json:"title"`
	Value    json.RawMessage `json:"value"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
}

type importSheetPayload struct {
	Sheet string `json:"sheet"`
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// toRequest converts the wire payload. Type and value errors are reported as
// validation errors on their field.
func (p createTransactionPayload) toRequest() (services.CreateTransactionRequest, error) {
	typ, err := core.ParseTransactionType(p.Type)
	if err != nil {
		return services.CreateTransactionRequest{}, err
	}

	raw := bytes.TrimSpace(p.Value)
	if len(raw) == 0 {
		return services.CreateTransactionRequest{}, &core.ValidationError{Field: "value", Err: core.ErrInvalidAmount}
	}
	var value core.Money
	if err := value.UnmarshalJSON(raw); err != nil {
		return services.CreateTransactionRequest{}, &core.ValidationError{Field: "value", Err: err}
	}

	return services.CreateTransactionRequest{
		Title:    sanitizeInput(p.Title),
		Value:    value,
		Type:     typ,
		Category: sanitizeInput(p.Category),
	}, nil
}

// sanitizeInput trims whitespace and drops control characters except tab.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// drain discards the rest of a body so keep-alive connections can be reused.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxJSONBodyBytes))
}
