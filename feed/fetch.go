package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bluesky-social/indigo/xrpc"

	"go-mlapi/types"
)

const (
	feedMethod = "app.bsky.feed.getFeed"
	publicHost = "https://public.api.bsky.app"
)

// Fetcher reads feed generator pages from a Bluesky AppView.
type Fetcher struct {
	client *xrpc.Client
}

// NewFetcher uses host, or the public unauthenticated endpoint when host is empty.
func NewFetcher(host string) *Fetcher {
	if host == "" {
		host = publicHost
	}
	return &Fetcher{
		client: &xrpc.Client{
			Client: &http.Client{Timeout: 10 * time.Second},
			Host:   host,
		},
	}
}

// Fetch returns one page of the feed at uri. The AppView accepts a limit of 1 to 100.
func (f *Fetcher) Fetch(ctx context.Context, uri string, limit int) (types.FeedResponse, error) {
	params := map[string]interface{}{
		"feed":  uri,
		"limit": limit,
	}

	var out types.FeedResponse
	if err := f.client.Do(ctx, xrpc.Query, "", feedMethod, params, nil, &out); err != nil {
		return out, fmt.Errorf("error fetching feed via xrpc: %w", err)
	}
	return out, nil
}
