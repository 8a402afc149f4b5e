package frontline

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zgpcy/status-exporter/internal/logger"
	"github.com/zgpcy/status-exporter/internal/upstream"
)

// Config holds the settings needed to talk to one Frontline partner portal.
type Config struct {
	URLPrefix string
	PartnerID string
	AuthToken string
	AuthURL   string
	AuthBody  string
	Timeout   time.Duration
	Clock     quartz.Clock
	Duration  prometheus.Observer
	Logger    *logger.Logger
}

// tokenResponse is the reply of the m2m token endpoint.
type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
}

// Client calls the Frontline API. Methods are safe for concurrent use; the
// JWT cache is shared across them.
type Client struct {
	cfg   Config
	api   *upstream.Client
	auth  *upstream.Client
	clock quartz.Clock
	log   *logger.Logger

	mu      sync.Mutex
	token   string
	fetched time.Time
	ttl     time.Duration
}

// New creates a Frontline client. API requests carry a bearer JWT obtained
// from the auth endpoint; the JWT is refreshed once half of its advertised
// lifetime has elapsed, checked before every request.
func New(cfg Config) *Client {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	c := &Client{cfg: cfg, clock: cfg.Clock, log: cfg.Logger}
	c.auth = upstream.NewClient(upstream.Config{
		Vendor:  "frontline",
		Timeout: cfg.Timeout,
		Authorize: func(_ context.Context, req *http.Request) error {
			req.Header.Set("Authorization", cfg.AuthToken)
			return nil
		},
		Duration: cfg.Duration,
		Logger:   cfg.Logger,
	})
	c.api = upstream.NewClient(upstream.Config{
		Vendor:    "frontline",
		BaseURL:   strings.TrimRight(cfg.URLPrefix, "/"),
		Timeout:   cfg.Timeout,
		Authorize: c.bearer,
		Duration:  cfg.Duration,
		Logger:    cfg.Logger,
	})
	return c
}

// bearer stamps a request with the cached JWT, refreshing it first when
// half of its lifetime has elapsed. Token age is measured from the moment
// the refresh succeeded.
func (c *Client) bearer(ctx context.Context, req *http.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || c.clock.Since(c.fetched) > c.ttl/2 {
		c.log.Info("Presenting auth token to refresh JWT")
		var tok tokenResponse
		err := c.auth.PostJSON(ctx, c.cfg.AuthURL, "application/x-www-form-urlencoded", c.cfg.AuthBody, &tok)
		if err != nil {
			return err
		}
		if tok.AccessToken == "" {
			return fmt.Errorf("frontline: auth endpoint returned no access_token")
		}
		c.token = tok.AccessToken
		c.fetched = c.clock.Now()
		c.ttl = time.Duration(tok.ExpiresIn * float64(time.Second))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return nil
}

// Customers fetches every customer of the configured partner group.
func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.api.GetJSON(ctx, fmt.Sprintf("/Groups/%s/customers", c.cfg.PartnerID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Locations fetches the locations of one customer.
func (c *Client) Locations(ctx context.Context, custID string) ([]Location, error) {
	var out []Location
	if err := c.api.GetJSON(ctx, fmt.Sprintf("/Customers/%s/locations", custID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Nodes fetches the raw nodes at one location.
func (c *Client) Nodes(ctx context.Context, custID, locID string) ([]NodeRecord, error) {
	var out struct {
		Nodes []NodeRecord `json:"nodes"`
	}
	path := fmt.Sprintf("/Customers/%s/locations/%s/nodes", custID, locID)
	if err := c.api.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// Meta is the customer and location inventory from one meta refresh.
type Meta struct {
	Customers map[string]Customer
	Locations map[string]Location
}

// RefreshMeta fetches all customers and each customer's locations,
// annotating every location with its customer id. A fetch error aborts the
// refresh so the previous inventory stays published.
func (c *Client) RefreshMeta(ctx context.Context) (*Meta, error) {
	c.log.Info("Refreshing customers and locations")
	customers, err := c.Customers(ctx)
	if err != nil {
		return nil, err
	}
	meta := &Meta{
		Customers: make(map[string]Customer, len(customers)),
		Locations: make(map[string]Location),
	}
	for _, cust := range customers {
		meta.Customers[cust.ID] = cust
		locs, err := c.Locations(ctx, cust.ID)
		if err != nil {
			return nil, err
		}
		for _, loc := range locs {
			loc.CustID = cust.ID
			meta.Locations[loc.ID] = loc
		}
	}
	c.log.Info("Refresh complete", "customers", len(meta.Customers), "locations", len(meta.Locations))
	return meta, nil
}
