// Command report prints the subscriber summary for every CRM organization
// to stdout: active counts per service plan, capitation totals, balance
// warnings, and the switchport reconciliation against Observium when an
// Observium section is configured. It is the one-shot companion to the
// exporter's weekly summary email.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/zgpcy/status-exporter/internal/billing"
	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/logger"
	"github.com/zgpcy/status-exporter/internal/observium"
	"github.com/zgpcy/status-exporter/internal/uisp"
	"github.com/zgpcy/status-exporter/internal/version"
)

var (
	configPath  = flag.String("config", "config.yaml", "Path to configuration file")
	pastDue     = flag.Bool("pastdue", false, "List only clients with an overdue invoice")
	noAutopay   = flag.Bool("noautopay", false, "List only clients without an autopay credit card")
	inactive    = flag.Bool("inactive", false, "List only inactive clients")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("status-exporter report %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildDate)
		return
	}

	// Load configuration first (need log level from config)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)

	if cfg.UISP == nil {
		logger.Error("Configuration has no uisp section; the report needs the CRM")
		os.Exit(1)
	}

	ctx := context.Background()
	timeout := time.Duration(cfg.APITimeout) * time.Second

	crm := uisp.New(uisp.Config{
		URLPrefix: cfg.UISP.URLPrefix,
		APIKey:    cfg.UISP.APIKey,
		Timeout:   timeout,
		Logger:    logger,
	})

	// The switchport reconciliation only runs with an Observium section.
	var access *billing.Access
	if cfg.Observium != nil {
		obs := observium.New(observium.Config{
			URLPrefix:    cfg.Observium.URLPrefix,
			Username:     cfg.Observium.Username,
			Password:     cfg.Observium.Password,
			DevicesQuery: cfg.Observium.DevicesQuery,
			Timeout:      timeout,
			Logger:       logger,
		})
		owners := make([]string, 0, len(cfg.Organizations))
		for name := range cfg.Organizations {
			owners = append(owners, name)
		}
		sort.Strings(owners)
		snap, err := obs.RefreshAll(ctx, owners)
		if err != nil {
			logger.Error("Failed to read Observium", "error", err)
			os.Exit(1)
		}
		access = billing.NewAccess(snap)
	}

	orgs, err := crm.Organizations(ctx)
	if err != nil {
		logger.Error("Failed to list CRM organizations", "error", err)
		os.Exit(1)
	}

	// The report reads each organization's clients and services as the CRM
	// returns them; services keep their own speed fields rather than the
	// plan's advertised speeds.
	data := billing.Data{
		Config: cfg.Organizations,
		Access: access,
		Today:  time.Now().UTC(),
	}
	for _, org := range orgs {
		clients, err := crm.Clients(ctx, org.ID)
		if err != nil {
			logger.Error("Failed to fetch clients", "organization", org.Name, "error", err)
			os.Exit(1)
		}
		services, err := crm.Services(ctx, org.ID)
		if err != nil {
			logger.Error("Failed to fetch services", "organization", org.Name, "error", err)
			os.Exit(1)
		}
		data.Orgs = append(data.Orgs, billing.OrgData{
			Name:     org.Name,
			Clients:  clients,
			Services: services,
		})
	}

	opts := billing.Options{
		PastDue:   *pastDue,
		NoAutopay: *noAutopay,
		Inactive:  *inactive,
	}
	fmt.Print(billing.BuildReport(data, opts))
}
