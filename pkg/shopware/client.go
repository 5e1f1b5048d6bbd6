// Package shopware is a small client for the Shopware 6 Admin API: bulk
// search and the sync endpoint for upserts and deletes.
package shopware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

const defaultPageSize = 500

type Config struct {
	URL          string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Repository is what the sync core needs from the target system.
type Repository interface {
	Search(ctx context.Context, entity string, criteria *Criteria) ([]value.Value, error)
	Upsert(ctx context.Context, entity string, payloads []map[string]any) error
	Delete(ctx context.Context, entity string, keys []map[string]any) error
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
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{http: client, config: cfg, logger: logger}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	var res tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.config.ClientID,
			"client_secret": c.config.ClientSecret,
		}).
		SetResult(&res).
		ForceContentType("application/json").
		Post("/api/oauth/token")
	if err != nil {
		return "", httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to request shopware token: %s", err.Error())
	}
	if resp.IsError() || res.AccessToken == "" {
		return "", httperror.NewHTTPErrorf(http.StatusBadGateway, "shopware rejected token request (status %d): %s", resp.StatusCode(), resp.String())
	}

	c.token = res.AccessToken
	// expire 30s early
	c.expiresAt = time.Now().Add(time.Duration(res.ExpiresIn)*time.Second - 30*time.Second)
	return c.token, nil
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token), nil
}

type searchResponse struct {
	Total int           `json:"total"`
	Data  []value.Value `json:"data"`
}

// Search runs criteria against entity. Without ids or an explicit limit the
// result is paged through completely.
func (c *Client) Search(ctx context.Context, entity string, criteria *Criteria) ([]value.Value, error) {
	ctx, span := tracing.StartSpan(ctx, "shopware.Client.Search", attribute.String("entity", entity))
	defer span.End()

	if criteria == nil {
		criteria = NewCriteria()
	}
	if len(criteria.IDs) > 0 || criteria.Limit > 0 {
		return c.searchPage(ctx, entity, criteria)
	}

	page := criteria.clone()
	page.Limit = defaultPageSize
	page.Page = 1

	var all []value.Value
	for {
		rows, err := c.searchPage(ctx, entity, page)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < page.Limit {
			return all, nil
		}
		page.Page++
	}
}

func (c *Client) searchPage(ctx context.Context, entity string, criteria *Criteria) ([]value.Value, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var res searchResponse
	resp, err := req.SetBody(criteria).SetResult(&res).ForceContentType("application/json").Post("/api/search/" + entityPath(entity))
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("failed to search %s", entity)
		return nil, httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to search %s: %s", entity, err.Error())
	}
	if resp.IsError() {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"entity": entity,
			"status": resp.StatusCode(),
		}).Error("shopware search failed")
		return nil, httperror.NewHTTPErrorf(resp.StatusCode(), "failed to search %s: %s", entity, resp.String())
	}

	return res.Data, nil
}

type syncOperation struct {
	Entity  string           `json:"entity"`
	Action  string           `json:"action"`
	Payload []map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, entity string, payloads []map[string]any) error {
	return c.sync(ctx, entity, "upsert", payloads)
}

func (c *Client) Delete(ctx context.Context, entity string, keys []map[string]any) error {
	return c.sync(ctx, entity, "delete", keys)
}

func (c *Client) sync(ctx context.Context, entity, action string, payload []map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "shopware.Client.Sync",
		attribute.String("entity", entity),
		attribute.String("action", action),
		attribute.Int("count", len(payload)),
	)
	defer span.End()

	if len(payload) == 0 {
		return nil
	}

	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	body := map[string]syncOperation{
		action + "-" + entity: {Entity: entity, Action: action, Payload: payload},
	}
	resp, err := req.
		SetHeader("single-operation", "1").
		SetHeader("indexing-behavior", "use-queue-indexing").
		SetBody(body).
		Post("/api/_action/sync")
	if err != nil {
		tracing.RecordError(span, err)
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to %s %s: %s", action, entity, err.Error())
	}
	if resp.IsError() {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"entity": entity,
			"action": action,
			"status": resp.StatusCode(),
			"count":  len(payload),
		}).Errorf("shopware sync failed: %s", resp.String())
		return httperror.NewHTTPErrorf(resp.StatusCode(), "failed to %s %s", action, entity)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"entity": entity,
		"action": action,
		"count":  len(payload),
	}).Debug("shopware sync done")
	return nil
}

// Ping checks the API is reachable with valid credentials.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.Get("/api/_info/version")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return httperror.NewHTTPErrorf(resp.StatusCode(), "shopware version check failed")
	}
	return nil
}

func entityPath(entity string) string {
	return strings.ReplaceAll(entity, "_", "-")
}
