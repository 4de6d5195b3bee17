package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}

// WriteError classifies err and writes it as an ErrorResponse.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error, txHash *common.Hash) {
	status, kind := ErrorKind(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "err", err)
	} else {
		log.Debug("Request rejected", slog.String("kind", kind), "err", err)
	}
	WriteJSON(w, log, status, ErrorResponse{
		Error:     err.Error(),
		Kind:      kind,
		Forwarded: IsForwarded(err),
		TxHash:    txHash,
	})
}

// ParseAddress parses a 0x-prefixed hex address from a path parameter.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a hex address", ErrInvalidInput, s)
	}
	return common.HexToAddress(s), nil
}

// DoJSON sends a request with an optional JSON body and decodes a JSON response into out.
// Non-2xx responses are returned as *APIError.
func DoJSON(ctx context.Context, client *http.Client, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Kind == "" {
			return &APIError{StatusCode: resp.StatusCode, Kind: KindInternal, Message: fmt.Sprintf("server returned %d: %s", resp.StatusCode, string(respBody))}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Kind:       errResp.Kind,
			Message:    errResp.Error,
			Forwarded:  errResp.Forwarded,
			TxHash:     errResp.TxHash,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}
