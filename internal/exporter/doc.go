// Package exporter assembles the status exporter: vendor API clients, the
// record stores they fill, the refresh domains that schedule the filling,
// and the gauges that expose the records to Prometheus.
//
// Each configured vendor section becomes one or two refresh domains (UISP
// CRM data; Frontline customers/locations and nodes on separate cadences;
// Observium access devices and ports). A domain's fetch replaces the
// domain's stores wholesale, except the node store, which the budgeted
// poller merges into. After every successful fetch the domain's gauges are
// synchronized so series appear, relabel and disappear in lockstep with
// upstream records.
//
// Refreshes are scrape-driven: collecting any series first offers the
// owning domain a refresh, and the driver behind
// status_exporter_last_refresh_timestamp_seconds offers one to every
// domain, so even a domain with no live series stays on schedule. Fetches
// run on the exporter's context, not the scrape's, so an aborted scrape
// does not cancel a refresh in flight.
//
// The weekly subscriber summary rides the same machinery: UISP model
// accesses and the driver offer the notifier a send, which renders the
// billing report from the current stores and mails one message per
// configured organization.
package exporter
