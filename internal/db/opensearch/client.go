// Package opensearch executes native search requests against an OpenSearch cluster.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go"

	"github.com/gally-search/gally/internal/db"
)

// Compile-time check: Client implements db.Engine.
var _ db.Engine = (*Client)(nil)

// Config holds connection parameters for an OpenSearch cluster.
type Config struct {
	Addresses          []string
	Username           string
	Password           string
	MaxRetries         int
	RetryOnStatus      []int
	InsecureSkipVerify bool
}

// Client wraps the opensearch-go client.
type Client struct {
	client *opensearch.Client
}

// NewClient creates an OpenSearch client.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}
	retryOn := cfg.RetryOnStatus
	if len(retryOn) == 0 {
		retryOn = []int{502, 503, 504, 429}
	}

	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local clusters
			},
		},
		RetryOnStatus: retryOn,
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return &Client{client: osClient}, nil
}

// Ping checks cluster connectivity.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("status %s", res.Status())}
	}
	return nil
}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for opensearch: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Search runs body against index. A missing index maps to db.ErrIndexNotFound.
func (c *Client) Search(ctx context.Context, index string, body []byte) (*db.SearchResponse, error) {
	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(index),
		c.client.Search.WithBody(bytes.NewReader(body)),
		c.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%s: %w", index, db.ErrIndexNotFound)}
	}
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("status %s: %s", res.Status(), msg)}
	}

	var out db.SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}
