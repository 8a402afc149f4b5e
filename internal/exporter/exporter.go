package exporter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zgpcy/status-exporter/internal/billing"
	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/frontline"
	"github.com/zgpcy/status-exporter/internal/logger"
	"github.com/zgpcy/status-exporter/internal/mail"
	"github.com/zgpcy/status-exporter/internal/modelgauge"
	"github.com/zgpcy/status-exporter/internal/observium"
	"github.com/zgpcy/status-exporter/internal/sched"
	"github.com/zgpcy/status-exporter/internal/store"
	"github.com/zgpcy/status-exporter/internal/uisp"
	"github.com/zgpcy/status-exporter/internal/upstream"
)

// Exporter owns the vendor clients, the record stores they fill, the
// refresh domains that schedule the filling, and the gauges that expose
// the records. Refreshes are driven by scrapes: reading any series of a
// domain first offers that domain a chance to refresh.
type Exporter struct {
	cfg    *config.Config
	log    *logger.Logger
	clock  quartz.Clock
	ctx    context.Context
	cancel context.CancelFunc

	metrics *Metrics
	group   *sched.Group

	mu       sync.Mutex
	uispOrgs []uisp.Organization

	uispClient *uisp.Client
	uispDomain *sched.Domain
	clients    *store.Store[int, uisp.ClientRecord]
	services   *store.Store[int, uisp.ServiceRecord]
	contacts   *store.Store[int, uisp.ContactRow]

	mailer   mail.Mailer
	notifier *sched.Notifier

	frontClient *frontline.Client
	metaDomain  *sched.Domain
	nodesDomain *sched.Domain
	customers   *store.Store[string, frontline.Customer]
	locations   *store.Store[string, frontline.Location]
	nodes       *store.Store[string, frontline.NodeRecord]
	poller      *frontline.NodePoller

	obsClient *observium.Client
	obsDomain *sched.Domain
	devices   *store.Store[string, observium.DeviceRecord]
	ports     *store.Store[string, observium.PortRecord]

	uispGauges []modelgauge.Synchronizer
	metaGauges []modelgauge.Synchronizer
	nodeGauges []modelgauge.Synchronizer
	obsGauges  []modelgauge.Synchronizer
}

// New builds an exporter from the configuration, performs the initial
// refresh of every configured domain, and exports the fetched records.
// A failed initial refresh is logged and retried on the first scrape;
// only a non-transient failure to list CRM organizations is fatal,
// since without it no CRM refresh can ever succeed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Exporter, error) {
	baseCtx, cancel := context.WithCancel(ctx)
	e := &Exporter{
		cfg:     cfg,
		log:     log,
		clock:   quartz.NewReal(),
		ctx:     baseCtx,
		cancel:  cancel,
		metrics: NewMetrics(),
	}
	e.group = sched.NewGroup(e.clock, log)

	timeout := time.Duration(cfg.APITimeout) * time.Second

	if cfg.UISP != nil {
		e.uispClient = uisp.New(uisp.Config{
			URLPrefix: cfg.UISP.URLPrefix,
			APIKey:    cfg.UISP.APIKey,
			Timeout:   timeout,
			Duration:  e.metrics.UpstreamDuration.WithLabelValues("uisp"),
			Logger:    log,
		})
		e.clients = store.New[int, uisp.ClientRecord]()
		e.services = store.New[int, uisp.ServiceRecord]()
		e.contacts = store.New[int, uisp.ContactRow]()
		e.uispDomain = e.newDomain("uisp", cfg.UISP.RefreshInterval, e.refreshUISP, func() {
			e.synchronize("uisp", e.uispGauges)
		})

		orgs, err := e.uispClient.Organizations(baseCtx)
		if err != nil {
			if !upstream.IsTransient(err) {
				cancel()
				return nil, fmt.Errorf("listing organizations: %w", err)
			}
			log.Warn("Organization listing failed, retrying on first refresh", "error", err)
		}
		e.uispOrgs = orgs

		if cfg.Email.Day >= 0 {
			mailer, err := mail.New(baseCtx, cfg.Mail, log)
			if err != nil {
				cancel()
				return nil, fmt.Errorf("configuring mail: %w", err)
			}
			e.mailer = mailer
			e.notifier = e.group.NewNotifier(sched.NotifierConfig{
				Day:  cfg.Email.Day,
				Hour: cfg.Email.Hour,
				Send: e.sendSummaries,
			})
		}
	}

	if cfg.Frontline != nil {
		e.frontClient = frontline.New(frontline.Config{
			URLPrefix: cfg.Frontline.URLPrefix,
			PartnerID: cfg.Frontline.PartnerID,
			AuthToken: cfg.Frontline.AuthToken,
			AuthURL:   cfg.Frontline.AuthURL,
			AuthBody:  cfg.Frontline.AuthBody,
			Timeout:   timeout,
			Clock:     e.clock,
			Duration:  e.metrics.UpstreamDuration.WithLabelValues("frontline"),
			Logger:    log,
		})
		e.customers = store.New[string, frontline.Customer]()
		e.locations = store.New[string, frontline.Location]()
		e.nodes = store.New[string, frontline.NodeRecord]()
		e.poller = frontline.NewNodePoller(
			e.frontClient,
			time.Duration(cfg.Frontline.NodeBatchSeconds)*time.Second,
			e.clock,
			log,
		)
		e.metaDomain = e.newDomain("frontline_meta", cfg.Frontline.LocationRefreshInterval, e.refreshMeta, func() {
			e.synchronize("frontline_meta", e.metaGauges)
		})
		e.nodesDomain = e.newDomain("frontline_nodes", cfg.Frontline.NodeRefreshInterval, e.refreshNodes, func() {
			e.synchronize("frontline_nodes", e.nodeGauges)
		})
	}

	if cfg.Observium != nil {
		e.obsClient = observium.New(observium.Config{
			URLPrefix:    cfg.Observium.URLPrefix,
			Username:     cfg.Observium.Username,
			Password:     cfg.Observium.Password,
			DevicesQuery: cfg.Observium.DevicesQuery,
			Timeout:      timeout,
			Duration:     e.metrics.UpstreamDuration.WithLabelValues("observium"),
			Logger:       log,
		})
		e.devices = store.New[string, observium.DeviceRecord]()
		e.ports = store.New[string, observium.PortRecord]()
		e.obsDomain = e.newDomain("observium", cfg.Observium.RefreshInterval, e.refreshObservium, func() {
			e.synchronize("observium", e.obsGauges)
		})
	}

	for _, d := range e.domains() {
		if err := d.MaybeRefresh(baseCtx); err != nil {
			log.Error("Initial refresh failed", "domain", d.Name(), "error", err)
		}
	}

	if cfg.UISP != nil {
		e.uispGauges = e.buildUISPGauges()
	}
	if cfg.Frontline != nil {
		e.metaGauges = e.buildFrontlineMetaGauges()
		e.nodeGauges = e.buildFrontlineNodeGauges()
	}
	if cfg.Observium != nil {
		e.obsGauges = e.buildObserviumGauges()
	}

	e.synchronize("uisp", e.uispGauges)
	e.synchronize("frontline_meta", e.metaGauges)
	e.synchronize("frontline_nodes", e.nodeGauges)
	e.synchronize("observium", e.obsGauges)

	return e, nil
}

// newDomain wires a refresh domain to the meta metrics under its name.
func (e *Exporter) newDomain(name string, intervalSeconds int, fetch func(context.Context) error, after func()) *sched.Domain {
	return e.group.NewDomain(sched.DomainConfig{
		Name:         name,
		Interval:     time.Duration(intervalSeconds) * time.Second,
		Fetch:        fetch,
		AfterSuccess: after,
		Transient:    upstream.IsTransient,
		Errors:       e.metrics.RefreshErrors.WithLabelValues(name),
		Duration:     e.metrics.RefreshDuration.WithLabelValues(name),
	})
}

// driver is the collector behind last_refresh_timestamp_seconds. Emitting
// it offers every domain a refresh and the notifier a send first, so a
// domain whose stores are empty (and therefore exports no data series
// that could trigger it) still stays on schedule.
type driver struct {
	e    *Exporter
	desc *prometheus.Desc
}

func newDriver(e *Exporter) *driver {
	return &driver{
		e: e,
		desc: prometheus.NewDesc(
			"status_exporter_last_refresh_timestamp_seconds",
			"Unix timestamp of the last successful refresh per domain, 0 before the first",
			[]string{"domain"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (dr *driver) Describe(ch chan<- *prometheus.Desc) { ch <- dr.desc }

// Collect implements prometheus.Collector. Domains refresh concurrently;
// a domain already in flight or within its interval returns immediately.
func (dr *driver) Collect(ch chan<- prometheus.Metric) {
	e := dr.e
	var wg sync.WaitGroup
	for _, d := range e.domains() {
		wg.Add(1)
		go func(d *sched.Domain) {
			defer wg.Done()
			if err := d.MaybeRefresh(e.ctx); err != nil {
				e.log.Error("Scrape-triggered refresh failed", "domain", d.Name(), "error", err)
			}
		}(d)
	}
	wg.Wait()
	if e.notifier != nil {
		e.notifier.MaybeNotify(e.ctx)
	}
	for _, d := range e.domains() {
		var ts float64
		if t := d.LastSuccess(); !t.IsZero() {
			ts = float64(t.Unix())
		}
		ch <- prometheus.MustNewConstMetric(dr.desc, prometheus.GaugeValue, ts, d.Name())
	}
}

// Register registers the meta metrics, the refresh driver, and every
// data gauge.
func (e *Exporter) Register(reg prometheus.Registerer) error {
	if err := e.metrics.Register(reg); err != nil {
		return err
	}
	if err := reg.Register(newDriver(e)); err != nil {
		return err
	}
	for _, gauges := range [][]modelgauge.Synchronizer{e.uispGauges, e.metaGauges, e.nodeGauges, e.obsGauges} {
		for _, g := range gauges {
			if err := reg.Register(g); err != nil {
				return fmt.Errorf("registering %s: %w", g.Name(), err)
			}
		}
	}
	return nil
}

// Close stops background work started by the exporter. In-flight
// scrape-triggered refreshes are canceled.
func (e *Exporter) Close() {
	e.cancel()
}

// Ready reports whether every configured domain has refreshed
// successfully at least once.
func (e *Exporter) Ready() bool {
	for _, d := range e.domains() {
		if !d.Ready() {
			return false
		}
	}
	return true
}

// DomainStatus describes one refresh domain for the index page.
type DomainStatus struct {
	Name        string
	Interval    time.Duration
	Ready       bool
	LastSuccess time.Time
}

// DomainStatus returns the state of every configured domain.
func (e *Exporter) DomainStatus() []DomainStatus {
	var ds []DomainStatus
	for _, d := range e.domains() {
		ds = append(ds, DomainStatus{
			Name:        d.Name(),
			Interval:    d.Interval(),
			Ready:       d.Ready(),
			LastSuccess: d.LastSuccess(),
		})
	}
	return ds
}

func (e *Exporter) domains() []*sched.Domain {
	var ds []*sched.Domain
	for _, d := range []*sched.Domain{e.uispDomain, e.metaDomain, e.nodesDomain, e.obsDomain} {
		if d != nil {
			ds = append(ds, d)
		}
	}
	return ds
}

// model adapts a store into a gauge model accessor. Every access first
// offers the domain a refresh and the notifier a send, both on the
// exporter's context so they outlive the scrape that triggered them.
func model[K comparable, R any](e *Exporter, d *sched.Domain, s *store.Store[K, R], n *sched.Notifier) func() (map[K]R, error) {
	return func() (map[K]R, error) {
		if err := d.MaybeRefresh(e.ctx); err != nil {
			return nil, err
		}
		if n != nil {
			n.MaybeNotify(e.ctx)
		}
		return s.Snapshot(), nil
	}
}

// organizations returns the CRM organization list, fetching it on first
// use when the startup fetch failed.
func (e *Exporter) organizations(ctx context.Context) ([]uisp.Organization, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.uispOrgs) == 0 {
		orgs, err := e.uispClient.Organizations(ctx)
		if err != nil {
			return nil, err
		}
		e.uispOrgs = orgs
	}
	return e.uispOrgs, nil
}

func (e *Exporter) refreshUISP(ctx context.Context) error {
	orgs, err := e.organizations(ctx)
	if err != nil {
		return err
	}
	snap, err := e.uispClient.RefreshAll(ctx, orgs)
	if err != nil {
		return err
	}
	e.clients.Replace(snap.Clients)
	e.services.Replace(snap.Services)
	e.contacts.Replace(snap.Contacts)
	return nil
}

func (e *Exporter) refreshMeta(ctx context.Context) error {
	meta, err := e.frontClient.RefreshMeta(ctx)
	if err != nil {
		return err
	}
	e.customers.Replace(meta.Customers)
	e.locations.Replace(meta.Locations)
	return nil
}

func (e *Exporter) refreshNodes(ctx context.Context) error {
	return e.poller.Poll(ctx, e.customers.Snapshot(), e.locations.Snapshot(), e.nodes)
}

func (e *Exporter) refreshObservium(ctx context.Context) error {
	owners := make([]string, 0, len(e.cfg.Organizations))
	for name := range e.cfg.Organizations {
		owners = append(owners, name)
	}
	sort.Strings(owners)
	snap, err := e.obsClient.RefreshAll(ctx, owners)
	if err != nil {
		return err
	}
	e.devices.Replace(snap.Devices)
	e.ports.Replace(snap.Ports)
	return nil
}

// synchronize reconciles a domain's gauges with its stores. Errors are
// counted and logged, never propagated: a failed synchronization leaves
// the previously exported series in place.
func (e *Exporter) synchronize(domain string, gauges []modelgauge.Synchronizer) {
	for _, g := range gauges {
		if err := g.Synchronize(); err != nil {
			e.metrics.RefreshErrors.WithLabelValues(domain).Inc()
			e.log.Error("Gauge synchronization failed", "domain", domain, "metric", g.Name(), "error", err)
		}
	}
}

// sendSummaries emails each configured organization its subscriber
// summary. Organizations without a recipient list are skipped. Failures
// are counted per organization and do not stop the remaining sends.
func (e *Exporter) sendSummaries(ctx context.Context) error {
	data, err := e.reportData(ctx)
	if err != nil {
		e.metrics.EmailErrors.WithLabelValues("UNKNOWN").Inc()
		return fmt.Errorf("collecting report data: %w", err)
	}

	names := make([]string, 0, len(e.cfg.Organizations))
	for name := range e.cfg.Organizations {
		names = append(names, name)
	}
	sort.Strings(names)

	ledger := billing.NewLedger(e.cfg.Organizations)
	var firstErr error
	for _, name := range names {
		orgCfg := e.cfg.Organizations[name]
		if len(orgCfg.PastdueReportTo) == 0 {
			continue
		}
		owned := billing.Data{
			Config: data.Config,
			Access: data.Access,
			Today:  data.Today,
		}
		for _, org := range data.Orgs {
			if billing.ConfigOrg(org, ledger) == name {
				owned.Orgs = append(owned.Orgs, org)
			}
		}
		msg := mail.Message{
			From:    e.cfg.Mail.Source,
			To:      orgCfg.PastdueReportTo,
			Cc:      e.cfg.Mail.CC,
			Subject: fmt.Sprintf("%s subscriber summary for %s", e.cfg.Mail.SubjectPrefix, name),
			Body:    billing.BuildReport(owned, billing.Options{}),
		}
		if err := e.mailer.Send(ctx, msg); err != nil {
			e.metrics.EmailErrors.WithLabelValues(name).Inc()
			e.log.Error("Summary email failed", "organization", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.metrics.EmailSuccess.WithLabelValues(name).Inc()
	}
	return firstErr
}

// reportData assembles the subscriber summary input from the stores.
// The CRM store is already fresh: the notifier only fires from a model
// access, which refreshes the CRM domain first. Services are attributed
// to an organization through their client; a service whose client is
// unknown cannot be attributed and is skipped.
func (e *Exporter) reportData(ctx context.Context) (billing.Data, error) {
	orgs, err := e.organizations(ctx)
	if err != nil {
		return billing.Data{}, err
	}
	clients := e.clients.Snapshot()
	services := e.services.Snapshot()

	byOrg := make(map[int]*billing.OrgData, len(orgs))
	ordered := make([]*billing.OrgData, 0, len(orgs))
	for _, org := range orgs {
		od := &billing.OrgData{Name: org.Name, Clients: make(map[int]uisp.ClientRecord)}
		byOrg[org.ID] = od
		ordered = append(ordered, od)
	}
	clientOrg := make(map[int]int, len(clients))
	for id, c := range clients {
		od, ok := byOrg[c.OrganizationID]
		if !ok {
			continue
		}
		od.Clients[id] = c
		clientOrg[id] = c.OrganizationID
	}
	for _, s := range services {
		orgID, ok := clientOrg[s.ClientID]
		if !ok {
			continue
		}
		byOrg[orgID].Services = append(byOrg[orgID].Services, s)
	}

	data := billing.Data{
		Config: e.cfg.Organizations,
		Today:  e.clock.Now().UTC(),
	}
	for _, od := range ordered {
		sort.Slice(od.Services, func(i, j int) bool { return od.Services[i].ID < od.Services[j].ID })
		data.Orgs = append(data.Orgs, *od)
	}
	if e.devices != nil {
		data.Access = billing.NewAccess(&observium.Snapshot{
			Devices: e.devices.Snapshot(),
			Ports:   e.ports.Snapshot(),
		})
	}
	return data, nil
}
