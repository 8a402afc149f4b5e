// Package config provides configuration management for the Status Exporter.
//
// This package handles loading configuration from YAML files, applying
// environment variable overrides, setting defaults, and validating the
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// Supported environment variables:
//   - STATUS_EXPORTER_LOG_LEVEL: Log level (debug, info, warn, error)
//   - STATUS_EXPORTER_HTTP_PORT: HTTP server port (1-65535)
//   - STATUS_EXPORTER_API_TIMEOUT: Per-request vendor API timeout in seconds
//   - STATUS_EXPORTER_EMAIL_DAY: Weekday of the weekly email (0=Sunday, -1 disables)
//   - STATUS_EXPORTER_EMAIL_HOUR: UTC hour after which the weekly email may send
//   - STATUS_EXPORTER_UISP_API_KEY: UISP CRM application key
//   - STATUS_EXPORTER_FRONTLINE_AUTH_TOKEN: Frontline OAuth client token
//   - STATUS_EXPORTER_OBSERVIUM_PASSWORD: Observium API password
//   - STATUS_EXPORTER_SES_ACCESS_KEY / STATUS_EXPORTER_SES_SECRET_KEY: AWS SES credentials
//   - STATUS_EXPORTER_SMTP_PASSWORD: SMTP password
//
// Secrets may be left out of the YAML file and supplied by environment
// instead; validation runs after the overrides are applied.
//
// The main type is Config. The three vendor sections are pointers: a nil
// section disables that subsystem, so a deployment can run any mix of
// UISP, Frontline and Observium. At least one section is required.
//
// Example configuration file (config.yaml):
//
//	log_level: "info"
//	http_port: 9090
//	api_timeout: 10
//
//	email:
//	  day: 2     # Tuesday; -1 disables the weekly summary
//	  hour: 14   # UTC
//
//	uisp:
//	  urlprefix: "https://uisp.example.com/crm/api/v1.0"
//	  apikey: "..."
//	  refresh_interval: 3600
//
//	frontline:
//	  urlprefix: "https://frontline.example.com/api"
//	  partnerid: "..."
//	  authtoken: "..."
//	  authurl: "https://sso.example.com/oauth2/token"
//	  authbody: "grant_type=client_credentials"
//	  location_refresh_interval: 86400
//	  node_refresh_interval: 40
//	  node_batch_seconds: 10
//
//	observium:
//	  urlprefix: "https://observium.example.com/api/v0"
//	  username: "monitor"
//	  password: "..."
//	  devices_querystring: "type=network&group=access"
//	  refresh_interval: 3600
//
//	mail:
//	  provider: "ses"
//	  source: "noreply@example.com"
//	  cc: ["ops@example.com"]
//	  ses:
//	    region: "us-west-2"
//	    access_key: "..."
//	    secret_key: "..."
//
//	organizations:
//	  myorg:
//	    pastdue_report_to: "owner@example.com"
//	    billing_instructions:
//	      42:
//	        subscriber_target: 25
//	        nli_management: 10.50
//	        nli_isp: 5.00
//	        nli_capitated_connectivity: 7.25
//	    capitated_connectivity_min: 100
//	    nli_monthly_connectivity: 250
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		log.Fatalf("Failed to load config: %v", err)
//	}
//
//	fmt.Printf("Serving on port %d\n", cfg.HTTPPort)
//	fmt.Printf("Organizations: %d\n", len(cfg.Organizations))
package config
