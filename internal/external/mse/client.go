package mse

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/httputil"
	"github.com/wonny/msesync/pkg/logger"
)

// Transport names selected by MSE_TRANSPORT
const (
	TransportHTTP    = "http"
	TransportAsync   = "async"
	TransportBrowser = "browser"
)

// issuerSeedCode is any valid symbol; its history page carries the full #Code select box
const issuerSeedCode = "KMB"

// pageGetter downloads one page body
type pageGetter interface {
	getPage(ctx context.Context, pageURL string) ([]byte, error)
}

// Client handles communication with the Macedonian Stock Exchange site
// ⭐ SSOT: mse.mk 호출은 이 클라이언트에서만
type Client struct {
	getter     pageGetter
	logger     *logger.Logger
	baseURL    string
	language   string
	transport  string
	asyncLimit int
}

// New creates a client using the transport configured in cfg.MSE.Transport
func New(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) (*Client, error) {
	c := &Client{
		logger:     log.Module("mse"),
		baseURL:    strings.TrimRight(cfg.MSE.BaseURL, "/"),
		language:   cfg.MSE.Language,
		transport:  cfg.MSE.Transport,
		asyncLimit: 1,
	}

	switch cfg.MSE.Transport {
	case TransportHTTP, "":
		c.transport = TransportHTTP
		c.getter = &httpGetter{client: httpClient}
	case TransportAsync:
		c.getter = &httpGetter{client: httpClient}
		c.asyncLimit = cfg.MSE.AsyncLimit
		if c.asyncLimit < 1 {
			c.asyncLimit = 1
		}
	case TransportBrowser:
		c.getter = newBrowserGetter(cfg.MSE)
	default:
		return nil, fmt.Errorf("unknown MSE transport %q", cfg.MSE.Transport)
	}

	return c, nil
}

// Transport returns the active transport name
func (c *Client) Transport() string {
	return c.transport
}

// Language returns the site language ("en" or "mk")
func (c *Client) Language() string {
	return c.language
}

// HistoryURL builds the symbol history query for one window.
// The en site takes M/D/YYYY bounds, the mk site D.M.YYYY.
func (c *Client) HistoryURL(code string, window contracts.DateRange) string {
	layout := "1/2/2006"
	if c.language == "mk" {
		layout = "02.01.2006"
	}

	params := url.Values{}
	params.Set("Code", code)
	params.Set("FromDate", window.Start.Format(layout))
	params.Set("ToDate", window.End.Format(layout))

	return fmt.Sprintf("%s/%s/stats/symbolhistory/%s?%s", c.baseURL, c.language, url.PathEscape(code), params.Encode())
}

// IssuersURL is the page whose select box lists every issuer
func (c *Client) IssuersURL() string {
	return fmt.Sprintf("%s/%s/stats/symbolhistory/%s", c.baseURL, c.language, strings.ToLower(issuerSeedCode))
}

// Fetch downloads and parses the history of one issuer for one window
func (c *Client) Fetch(ctx context.Context, code string, window contracts.DateRange) ([]contracts.RawRow, error) {
	start := time.Now()

	body, err := c.getter.getPage(ctx, c.HistoryURL(code, window))
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", code, window, err)
	}

	rows, err := ParseHistory(code, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", code, window, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"issuer_code": code,
		"window":      window.String(),
		"rows":        len(rows),
		"duration":    time.Since(start),
	}).Debug("Fetched history chunk")

	return rows, nil
}

// FetchChunks fetches every chunk of one issuer. The async transport runs up to
// asyncLimit chunks at once; results are always returned in chunk order.
func (c *Client) FetchChunks(ctx context.Context, code string, chunks []contracts.DateRange) []contracts.ChunkResult {
	results := make([]contracts.ChunkResult, len(chunks))

	if c.asyncLimit <= 1 {
		for i, window := range chunks {
			rows, err := c.Fetch(ctx, code, window)
			results[i] = contracts.ChunkResult{Window: window, Rows: rows, Err: err}
		}
		return results
	}

	sem := make(chan struct{}, c.asyncLimit)
	var wg sync.WaitGroup
	for i, window := range chunks {
		wg.Add(1)
		go func(i int, window contracts.DateRange) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = contracts.ChunkResult{Window: window, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			rows, err := c.Fetch(ctx, code, window)
			results[i] = contracts.ChunkResult{Window: window, Rows: rows, Err: err}
		}(i, window)
	}
	wg.Wait()

	return results
}

// FetchIssuers lists the issuers offered by the site
func (c *Client) FetchIssuers(ctx context.Context) ([]contracts.Issuer, error) {
	body, err := c.getter.getPage(ctx, c.IssuersURL())
	if err != nil {
		return nil, fmt.Errorf("fetch issuers: %w", err)
	}

	issuers, err := ParseIssuers(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"count":    len(issuers),
		"language": c.language,
	}).Info("Fetched issuer list")

	return issuers, nil
}

// httpGetter is the plain HTTP transport (retry, backoff and rate limit live in httputil)
type httpGetter struct {
	client *httputil.Client
}

func (g *httpGetter) getPage(ctx context.Context, pageURL string) ([]byte, error) {
	return g.client.GetBody(ctx, pageURL)
}
