// Package plenty fetches variations from the Plentymarkets REST API. The
// regular sync reads its records from the update queue; this client backs
// the single-variation diagnostic run.
package plenty

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/go-resty/resty/v2"
)

// variationRelations are the sub-resources the mapping reads.
var variationRelations = []string{
	"base", "texts", "salesPrices", "stocks", "barcodes", "categories", "tags",
	"attributeValues", "properties", "images", "markets", "clients", "supplier", "unit", "item",
}

type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	http   *resty.Client
	config Config
	logger ectologger.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(cfg Config, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: client, config: cfg, logger: logger}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	var res loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": c.config.Username, "password": c.config.Password}).
		SetResult(&res).
		ForceContentType("application/json").
		Post("/rest/login")
	if err != nil {
		return "", httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to log in to plenty: %s", err.Error())
	}
	if resp.IsError() || res.AccessToken == "" {
		return "", httperror.NewHTTPErrorf(http.StatusBadGateway, "plenty rejected login (status %d)", resp.StatusCode())
	}

	c.token = res.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	return c.token, nil
}

type variationsResponse struct {
	Entries []value.Value `json:"entries"`
}

// GetVariation returns the variation with id, or false when plenty has none.
func (c *Client) GetVariation(ctx context.Context, id int64) (value.Value, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "plenty.Client.GetVariation")
	defer span.End()

	token, err := c.accessToken(ctx)
	if err != nil {
		return value.Absent(), false, err
	}

	var res variationsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("id", strconv.FormatInt(id, 10)).
		SetQueryParam("with", strings.Join(variationRelations, ",")).
		SetResult(&res).
		ForceContentType("application/json").
		Get("/rest/pim/variations")
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("failed to fetch variation %d", id)
		return value.Absent(), false, httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to fetch variation %d: %s", id, err.Error())
	}
	if resp.IsError() {
		return value.Absent(), false, httperror.NewHTTPErrorf(resp.StatusCode(), "failed to fetch variation %d", id)
	}

	if len(res.Entries) == 0 {
		return value.Absent(), false, nil
	}
	return res.Entries[0], true, nil
}
