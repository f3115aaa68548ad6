package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"sunpoll/internal/constants"
	apperrors "sunpoll/pkg/errors"
)

// Fetcher retrieves the raw status document from the inverter.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher issues one GET per call with a hard timeout; it never retries.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = constants.DefaultFetchTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	fail := func(cause error, format string, args ...interface{}) *apperrors.Error {
		return apperrors.ErrFetch.WithCause(cause).
			WithMessage(format, args...).
			WithDetail("url", url)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fail(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.ServiceName)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fail(err, "request to %s failed", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, constants.MaxPayloadBytes))
		return nil, fail(fmt.Errorf("unexpected status: %s", resp.Status), "%s returned status %d", url, resp.StatusCode).
			WithDetail("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxPayloadBytes+1))
	if err != nil {
		return nil, fail(err, "failed to read response body")
	}
	if len(body) > constants.MaxPayloadBytes {
		return nil, fail(fmt.Errorf("body exceeds %d bytes", constants.MaxPayloadBytes), "response too large")
	}

	return body, nil
}
