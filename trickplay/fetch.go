package trickplay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vesper-player/vesper/network"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the raw bytes of one tile image.
type Fetcher interface {
	Fetch(ctx context.Context, itemID string, info Info, index int) ([]byte, error)
}

// TileURL builds the address of tile index for an item at a thumbnail width.
type TileURL func(itemID string, width, index int) string

// HTTPFetcher downloads tiles over HTTP.
type HTTPFetcher struct {
	// Client defaults to network.Client.
	Client *http.Client
	URL    TileURL
	Header http.Header

	// Limiter, when set, paces requests across all concurrent fetches.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing perSecond requests with a burst of
// the same size, or nil for no limit.
func NewLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// Fetch performs one GET and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, itemID string, info Info, index int) ([]byte, error) {
	if f.URL == nil {
		return nil, errors.New("no tile url builder")
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(itemID, info.Width, index), nil)
	if err != nil {
		return nil, err
	}

	for k, values := range f.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	client := f.Client
	if client == nil {
		client = network.Client
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	return body, nil
}
