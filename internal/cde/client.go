package cde

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/metrics"
)

// Endpoint names used in logs and metric labels.
const (
	endpointAgencyDirectory = "agency_directory"
	endpointAgencyArrests   = "agency_arrests"
	endpointStateArrests    = "state_arrests"
)

// ClientConfig aims the client at one CDE deployment and year range.
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	YearFrom int
	YearTo   int
}

// Client wraps the three CDE read operations. The arrest operations treat a
// rejected request (non-2xx) as an empty result with a nil error; the agency
// directory reports it as an error. Transport and decode failures are always
// returned to the caller.
type Client struct {
	cfg     ClientConfig
	fetcher Fetcher
	logger  *zap.Logger
}

// NewClient builds a Client on top of fetcher.
func NewClient(cfg ClientConfig, fetcher Fetcher, logger *zap.Logger) *Client {
	return &Client{cfg: cfg, fetcher: fetcher, logger: logger}
}

// AgencyDirectory lists every agency for a state abbreviation. The endpoint
// returns a bare JSON list and is assumed to fit in one response. Unlike the
// arrest calls, a non-2xx status is reported as an error.
func (c *Client) AgencyDirectory(ctx context.Context, state string) ([]Record, error) {
	u := fmt.Sprintf("%s/agency/byStateAbbr/%s?API_KEY=%s",
		c.cfg.BaseURL, url.PathEscape(state), url.QueryEscape(c.cfg.APIKey))
	body, status, err := c.get(ctx, endpointAgencyDirectory, u)
	if err != nil {
		return nil, err
	}
	if !statusOK(status) {
		return nil, fmt.Errorf("%s: unexpected status %d", endpointAgencyDirectory, status)
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpointAgencyDirectory, err)
	}
	return records, nil
}

// AgencyArrests returns the arrest series for one agency over the configured
// year range, with the agency's ORI injected under the Agency key.
func (c *Client) AgencyArrests(ctx context.Context, ori string) ([]Record, error) {
	u := fmt.Sprintf("%s/arrest/agency/%s/all?from=%d&to=%d&API_KEY=%s",
		c.cfg.BaseURL, url.PathEscape(ori), c.cfg.YearFrom, c.cfg.YearTo, url.QueryEscape(c.cfg.APIKey))
	body, status, err := c.get(ctx, endpointAgencyArrests, u)
	if err != nil {
		return nil, err
	}
	if !statusOK(status) {
		c.logRejected(endpointAgencyArrests, u, status)
		return nil, nil
	}
	var payload dataEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpointAgencyArrests, err)
	}
	for _, r := range payload.Data {
		r[AgencyKey] = ori
	}
	return payload.Data, nil
}

// StateArrests returns the state-level arrest series over the configured year
// range.
func (c *Client) StateArrests(ctx context.Context, state string) ([]Record, error) {
	u := fmt.Sprintf("%s/arrest/state/%s/all?from=%d&to=%d&API_KEY=%s",
		c.cfg.BaseURL, url.PathEscape(state), c.cfg.YearFrom, c.cfg.YearTo, url.QueryEscape(c.cfg.APIKey))
	body, status, err := c.get(ctx, endpointStateArrests, u)
	if err != nil {
		return nil, err
	}
	if !statusOK(status) {
		c.logRejected(endpointStateArrests, u, status)
		return nil, nil
	}
	var payload dataEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpointStateArrests, err)
	}
	return payload.Data, nil
}

// get issues the request and records the fetch metric. Transport failures are
// errors; the status policy belongs to the caller.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) ([]byte, int, error) {
	resp, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		metrics.ObserveFetch(endpoint, 0)
		return nil, 0, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	metrics.ObserveFetch(endpoint, resp.StatusCode)
	return resp.Body, resp.StatusCode, nil
}

func statusOK(status int) bool {
	return status >= 200 && status <= 299
}

// logRejected records the silent-failure path of the arrest endpoints: the
// rejected call contributes no rows and no error.
func (c *Client) logRejected(endpoint, rawURL string, status int) {
	c.logger.Warn("cde request rejected",
		zap.String("endpoint", endpoint),
		zap.String("url", redactKey(rawURL)),
		zap.Int("status", status),
	)
}

// redactKey masks the API key query parameter so URLs are loggable.
func redactKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("API_KEY") {
		q.Set("API_KEY", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
