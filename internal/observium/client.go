// Package observium is a client for the Observium network monitoring API
// (https://docs.observium.org/api/). It fetches the access-switch inventory
// selected by a configured device query and the switchports of every device
// owned by a known organization. Port aliases tagged "Cust: " identify the
// subscriber each port serves; the report joins them against CRM clients.
package observium

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

// Config holds the settings needed to talk to one Observium instance.
type Config struct {
	URLPrefix    string
	Username     string
	Password     string
	DevicesQuery string
	Timeout      time.Duration
	Duration     prometheus.Observer
	Logger       *logger.Logger
}

// Client calls the Observium API with HTTP basic auth. Methods are safe for
// concurrent use.
type Client struct {
	api   *upstream.Client
	query string
	log   *logger.Logger
}

// New creates an Observium client.
func New(cfg Config) *Client {
	api := upstream.NewClient(upstream.Config{
		Vendor:  "observium",
		BaseURL: strings.TrimRight(cfg.URLPrefix, "/"),
		Timeout: cfg.Timeout,
		Authorize: func(_ context.Context, req *http.Request) error {
			req.SetBasicAuth(cfg.Username, cfg.Password)
			return nil
		},
		Duration: cfg.Duration,
		Logger:   cfg.Logger,
	})
	return &Client{api: api, query: cfg.DevicesQuery, log: cfg.Logger}
}

// Devices fetches the devices selected by the configured query string,
// keyed by device id.
func (c *Client) Devices(ctx context.Context) (map[string]DeviceRecord, error) {
	var out struct {
		Devices map[string]DeviceRecord `json:"devices"`
	}
	if err := c.api.GetJSON(ctx, "/devices/?"+c.query, &out); err != nil {
		return nil, err
	}
	for id, dev := range out.Devices {
		dev.ID = id
		out.Devices[id] = dev
	}
	return out.Devices, nil
}

// Ports fetches the switchports of one device, keyed by port id.
func (c *Client) Ports(ctx context.Context, deviceID string) (map[string]PortRecord, error) {
	var out struct {
		Ports map[string]PortRecord `json:"ports"`
	}
	path := fmt.Sprintf("/ports/?device_id=%s&fields=ifAlias,ifSpeed,ifAdminStatus", deviceID)
	if err := c.api.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	for id, p := range out.Ports {
		p.ID = id
		p.DeviceID = deviceID
		out.Ports[id] = p
	}
	return out.Ports, nil
}

// Snapshot is the result of one Observium refresh.
type Snapshot struct {
	Devices map[string]DeviceRecord
	Ports   map[string]PortRecord
}

// RefreshAll fetches the device inventory and the ports of every device
// whose owner appears in owners. Unowned devices are listed but their ports
// are not fetched.
func (c *Client) RefreshAll(ctx context.Context, owners []string) (*Snapshot, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(owners))
	for _, o := range owners {
		owned[o] = true
	}
	snap := &Snapshot{Devices: devices, Ports: make(map[string]PortRecord)}
	polled := 0
	for id, dev := range devices {
		if !owned[dev.Owner()] {
			continue
		}
		ports, err := c.Ports(ctx, id)
		if err != nil {
			return nil, err
		}
		maps.Copy(snap.Ports, ports)
		polled++
	}
	c.log.Info("Refreshed devices", "devices", len(devices), "polled", polled, "ports", len(snap.Ports))
	return snap, nil
}
