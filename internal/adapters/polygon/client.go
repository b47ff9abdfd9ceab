package polygon

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"minerva/internal/adapters/config"
	"minerva/internal/domain/options"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const contractsPath = "/v3/reference/options/contracts"

// Client fetches option-contract reference data from the Polygon API.
// It always requests the maximum page the API allows; date filtering and
// truncation happen client-side in the fetcher.
type Client struct {
	baseURL   string
	apiKey    string
	pageLimit int
	http      *http.Client
	log       *logger.Logger
}

// NewClient creates an upstream options-data client
func NewClient(cfg config.PolygonConfig) *Client {
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = 1000
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		pageLimit: pageLimit,
		http:      &http.Client{Timeout: timeout},
		log:       logger.Get().With("component", "polygon_client"),
	}
}

// ListContracts fetches all option contracts for an underlying ticker,
// normalized into the domain contract type in upstream response order.
// A non-success status surfaces as ErrUpstream; retries belong to the caller.
func (c *Client) ListContracts(ctx context.Context, ticker string) ([]options.OptionContract, error) {
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "ticker is required")
	}

	endpoint, err := url.Parse(c.baseURL + contractsPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "invalid base URL")
	}

	params := url.Values{}
	params.Set("underlying_ticker", ticker)
	params.Set("limit", strconv.Itoa(c.pageLimit))
	params.Set("apiKey", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build contracts request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "contracts request for %s failed: %v", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrUpstream, "contracts request for %s returned status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "read contracts response for %s: %v", ticker, err)
	}

	contracts, err := ParseContracts(body)
	if err != nil {
		return nil, err
	}

	c.log.Debugw("Fetched upstream contracts", "ticker", ticker, "count", len(contracts))
	return contracts, nil
}
