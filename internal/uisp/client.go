// Package uisp is a client for the UISP CRM API
// (https://unmscrm.docs.apiary.io). It fetches organizations, clients,
// services and service plans, and assembles the per-refresh snapshot the
// exporter publishes: clients and services accumulated across every
// organization, services enriched with the owning client's userIdent and
// the plan's advertised speeds, and contacts flattened into rows.
package uisp

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zgpcy/status-exporter/internal/logger"
	"github.com/zgpcy/status-exporter/internal/upstream"
)

// Config holds the settings needed to talk to one CRM instance.
type Config struct {
	URLPrefix string
	APIKey    string
	Timeout   time.Duration
	Duration  prometheus.Observer
	Logger    *logger.Logger
}

// Client calls the CRM API. Methods are safe for concurrent use.
type Client struct {
	api *upstream.Client
	log *logger.Logger
}

// New creates a CRM client. Every request carries the application key in
// the X-Auth-App-Key header.
func New(cfg Config) *Client {
	api := upstream.NewClient(upstream.Config{
		Vendor:  "uisp",
		BaseURL: strings.TrimRight(cfg.URLPrefix, "/"),
		Timeout: cfg.Timeout,
		Authorize: func(_ context.Context, req *http.Request) error {
			req.Header.Set("X-Auth-App-Key", cfg.APIKey)
			return nil
		},
		Duration: cfg.Duration,
		Logger:   cfg.Logger,
	})
	return &Client{api: api, log: cfg.Logger}
}

// Organizations fetches the CRM organization list.
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.api.GetJSON(ctx, "/organizations", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Clients fetches every client of one organization, keyed by client id.
func (c *Client) Clients(ctx context.Context, orgID int) (map[int]ClientRecord, error) {
	var list []ClientRecord
	if err := c.api.GetJSON(ctx, fmt.Sprintf("/clients?organizationId=%d", orgID), &list); err != nil {
		return nil, err
	}
	clients := make(map[int]ClientRecord, len(list))
	for _, rec := range list {
		clients[rec.ID] = rec
	}
	return clients, nil
}

// Services fetches every service of one organization.
func (c *Client) Services(ctx context.Context, orgID int) ([]ServiceRecord, error) {
	var list []ServiceRecord
	if err := c.api.GetJSON(ctx, fmt.Sprintf("/clients/services?organizationId=%d", orgID), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ServicePlans fetches all service plans keyed by plan id.
func (c *Client) ServicePlans(ctx context.Context) (map[int]ServicePlanRecord, error) {
	var list []ServicePlanRecord
	if err := c.api.GetJSON(ctx, "/service-plans", &list); err != nil {
		return nil, err
	}
	plans := make(map[int]ServicePlanRecord, len(list))
	for _, rec := range list {
		plans[rec.ID] = rec
	}
	return plans, nil
}

// Snapshot is the result of one full CRM refresh.
type Snapshot struct {
	Clients  map[int]ClientRecord
	Services map[int]ServiceRecord
	Contacts map[int]ContactRow
	Plans    map[int]ServicePlanRecord
}

// RefreshAll fetches the service plans once, then clients and services of
// every given organization, and returns the enriched snapshot. Fetch errors
// abort the refresh so the previous snapshot stays published.
func (c *Client) RefreshAll(ctx context.Context, orgs []Organization) (*Snapshot, error) {
	plans, err := c.ServicePlans(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Clients:  make(map[int]ClientRecord),
		Services: make(map[int]ServiceRecord),
		Plans:    plans,
	}
	for _, org := range orgs {
		c.log.Info("Refreshing organization", "organization", org.Name, "id", org.ID)
		clients, err := c.Clients(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		maps.Copy(snap.Clients, clients)
		services, err := c.Services(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range services {
			snap.Services[s.ID] = s
		}
	}
	for id, s := range snap.Services {
		snap.Services[id] = enrich(s, snap.Clients, plans)
	}
	snap.Contacts = ContactRows(snap.Clients)
	return snap, nil
}

// enrich rewrites the cross-record fields of a service: userIdent from the
// owning client and advertised speeds from the service plan.
func enrich(s ServiceRecord, clients map[int]ClientRecord, plans map[int]ServicePlanRecord) ServiceRecord {
	s.UserIdent = "-1"
	if owner, ok := clients[s.ClientID]; ok {
		s.UserIdent = owner.UserIdent
	}
	s.DownloadSpeed, s.UploadSpeed = -1, -1
	if plan, ok := plans[s.ServicePlanID]; ok {
		if plan.DownloadSpeed != nil {
			s.DownloadSpeed = *plan.DownloadSpeed
		}
		if plan.UploadSpeed != nil {
			s.UploadSpeed = *plan.UploadSpeed
		}
	}
	return s
}
