package billing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/observium"
	"github.com/zgpcy/status-exporter/internal/uisp"
)

// Options restricts the per-client lines of the report. When any flag is
// set, only clients matching at least one selected flag are listed; the
// plan and organization summaries are unaffected.
type Options struct {
	PastDue   bool
	NoAutopay bool
	Inactive  bool
}

func (o Options) restricted() bool {
	return o.PastDue || o.NoAutopay || o.Inactive
}

// Match reports whether a client should be listed under these options.
func (o Options) Match(c uisp.ClientRecord) bool {
	if !o.restricted() {
		return true
	}
	return o.PastDue && c.HasOverdueInvoice ||
		o.NoAutopay && !c.HasAutopayCreditCard ||
		o.Inactive && !c.IsActive
}

// OrgData is one CRM organization's worth of report input.
type OrgData struct {
	Name     string
	Clients  map[int]uisp.ClientRecord
	Services []uisp.ServiceRecord
}

// Access is the switchport view of the subscriber base, derived from one
// Observium snapshot: access devices grouped by owning organization and
// the live customer ports of each device.
type Access struct {
	devices map[string][]string
	ports   map[string][]observium.PortRecord
}

// NewAccess indexes an Observium snapshot for report rendering.
func NewAccess(snap *observium.Snapshot) *Access {
	a := &Access{
		devices: make(map[string][]string),
		ports:   make(map[string][]observium.PortRecord),
	}
	for id, dev := range snap.Devices {
		owner := dev.Owner()
		if owner == "" {
			continue
		}
		a.devices[owner] = append(a.devices[owner], id)
	}
	for owner := range a.devices {
		sort.Strings(a.devices[owner])
	}
	for _, p := range observium.CustomerPorts(snap.Ports) {
		a.ports[p.DeviceID] = append(a.ports[p.DeviceID], p)
	}
	return a
}

// Devices returns the access device ids owned by an organization.
func (a *Access) Devices(org string) []string {
	return a.devices[org]
}

// SubscribersUp returns the subscriber tags with a live customer
// switchport on the organization's access devices. Technician ports do
// not count as subscribers.
func (a *Access) SubscribersUp(org string) map[string]bool {
	up := make(map[string]bool)
	for _, devID := range a.devices[org] {
		for _, p := range a.ports[devID] {
			if observium.IsTechnician(p) {
				continue
			}
			up[observium.SubscriberName(p)] = true
		}
	}
	return up
}

// Data is the full report input: the CRM organizations in fetch order,
// the per-organization billing config, the optional Observium view, and
// the date used for new-service and dropped-client arithmetic.
type Data struct {
	Orgs   []OrgData
	Config map[string]config.Organization
	Access *Access
	Today  time.Time
}

// BuildReport renders the subscriber summary for every organization in
// data, followed by the grand receivable/credit totals. The same text is
// used as the weekly email body and as the report CLI output.
func BuildReport(data Data, opts Options) string {
	var b strings.Builder
	ledger := NewLedger(data.Config)
	var receivable, credit float64
	for _, org := range data.Orgs {
		r, c := writeOrg(&b, org, ledger, data, opts)
		receivable += r
		credit += c
	}
	fmt.Fprintf(&b, "\ngrand total receivable: %s, grand total credit: %s, net: %s\n",
		uisp.CurrencyString(-receivable), uisp.CurrencyString(credit), uisp.CurrencyString(-receivable-credit))
	return b.String()
}

// writeOrg renders one organization's section and returns its receivable
// and credit sums.
func writeOrg(b *strings.Builder, org OrgData, ledger *Ledger, data Data, opts Options) (receivable, credit float64) {
	var activeClients, archivedClients int
	for _, c := range org.Clients {
		if c.IsArchived {
			archivedClients++
		} else if c.IsActive && !c.IsLead {
			activeClients++
		}
		if c.AccountBalance > 0 {
			credit += c.AccountBalance
		} else if c.AccountBalance < 0 {
			receivable += c.AccountBalance
		}
	}
	archived := ""
	if archivedClients > 0 {
		archived = fmt.Sprintf(" (%d archived)", archivedClients)
	}
	fmt.Fprintf(b, "\n%s: %d active of %d clients%s\n", org.Name, activeClients, len(org.Clients), archived)

	// Services that ended with the previous month mark dropped clients.
	// "Previous month" reaches back far enough from today that the report
	// stays stable for the first half of the current month.
	lastMonth := data.Today.AddDate(0, 0, -(14 + data.Today.Day())).Format("2006-01-")
	thisMonth := data.Today.Format("2006-01-")

	thisMonthPlans := make(map[int][]uisp.ServiceRecord)
	activeClientIDs := make(map[int]bool)
	droppedClientIDs := make(map[int]bool)
	for _, s := range org.Services {
		switch s.Status {
		case uisp.ServiceStatusActive:
			thisMonthPlans[s.ServicePlanID] = append(thisMonthPlans[s.ServicePlanID], s)
			activeClientIDs[s.ClientID] = true
		case uisp.ServiceStatusEnded:
			if s.ActiveTo != nil && strings.HasPrefix(*s.ActiveTo, lastMonth) {
				droppedClientIDs[s.ClientID] = true
			}
		}
	}

	planIDs := make([]int, 0, len(thisMonthPlans))
	for spid := range thisMonthPlans {
		planIDs = append(planIDs, spid)
	}
	sort.Ints(planIDs)

	var nonconnectivity, connectivity, remainder float64
	cfgOrg := ""
	clientsWithService := make(map[int]bool)
	for _, spid := range planIDs {
		services := thisMonthPlans[spid]
		owner, instr := ledger.Owner(spid)
		if cfgOrg == "" {
			cfgOrg = owner
		}
		totals := PlanTotals{PlanID: spid, Instruction: instr}
		for _, s := range services {
			totals.Register(s)
		}
		nonconnectivity += totals.CapitatedToNLI()
		connectivity += totals.CapitatedConnectivity()
		remainder += totals.Remainder()

		warning := fmt.Sprintf(" (target %d)", totals.Target())
		if totals.Target() > totals.Actives {
			warning = fmt.Sprintf(" (WARNING less than target %d)", totals.Target())
		}
		nli100 := ""
		if instr == nil {
			nli100 = " 100% NLI"
		}
		speed := ""
		if dls := services[0].DownloadSpeed; dls > 0 {
			speed = fmt.Sprintf(" %d Mbps", int(dls))
		}
		accessDevices := ""
		if owner != "" && data.Access != nil {
			accessDevices = fmt.Sprintf(" on %d access devices", len(data.Access.Devices(owner)))
		}
		fmt.Fprintf(b, "\n=== %s(%d)%s has %d actives%s%s%s\n",
			services[0].Name, spid, speed, totals.Actives, warning, nli100, accessDevices)

		planClientIDs := make(map[int]bool)
		newServiceIDs := make(map[int]bool)
		for _, s := range services {
			if s.ServicePlanType != "General" {
				planClientIDs[s.ClientID] = true
				clientsWithService[s.ClientID] = true
			}
			if s.ActiveFrom != nil && *s.ActiveFrom >= thisMonth {
				newServiceIDs[s.ClientID] = true
			}
		}
		writeClients(b, clientsOf(org.Clients, planClientIDs), newServiceIDs, opts)
	}

	clientIDs := make([]int, 0, len(org.Clients))
	for id := range org.Clients {
		clientIDs = append(clientIDs, id)
	}
	sort.Ints(clientIDs)
	for _, id := range clientIDs {
		c := org.Clients[id]
		if droppedClientIDs[id] && !activeClientIDs[id] {
			fmt.Fprintf(b, "**** %s no longer has service\n", uisp.NameOf(c))
		}
		if clientsWithService[id] && c.Username == "" {
			fmt.Fprintf(b, "**** WARNING: client has no username: %s\n", uisp.NameOf(c))
		}
	}

	if data.Access != nil && cfgOrg != "" {
		custsUp := data.Access.SubscribersUp(cfgOrg)
		custsWithService := make(map[string]bool)
		for _, id := range clientIDs {
			c := org.Clients[id]
			if !clientsWithService[id] {
				continue
			}
			custName := subscriberTag(c)
			custsWithService[custName] = true
			if !custsUp[custName] {
				fmt.Fprintf(b, "**** WARNING: client has service in UISP but no switchport: %s\n", uisp.NameOf(c))
			}
		}
		var unbilled []string
		for name := range custsUp {
			if !custsWithService[name] {
				unbilled = append(unbilled, name)
			}
		}
		if len(unbilled) > 0 {
			sort.Strings(unbilled)
			fmt.Fprintf(b, "**** WARNING: of %d subscriber switchports, these are not billing in UISP: %s\n",
				len(custsUp), strings.Join(unbilled, ", "))
		}
	}

	values := data.Config[cfgOrg]
	var fmpstr string
	var payouts float64
	if len(values.FixedMonthlyPayouts) > 0 {
		parts := make([]string, 0, len(values.FixedMonthlyPayouts))
		for _, p := range values.FixedMonthlyPayouts {
			parts = append(parts, fmt.Sprintf("%s %s", p.Name, uisp.CurrencyString(p.Amount)))
			payouts += p.Amount
		}
		fmpstr = ", " + strings.Join(parts, ", ")
	}
	clamped := clampConnectivity(connectivity, values)
	monthly := values.NLIMonthlyConnectivity
	net := remainder - monthly - clamped - payouts
	fmt.Fprintf(b, "\n === NLI capitated nonconnectivity %s, NLI connectivity %s%s, net to NLI %s, net to customer %s\n",
		uisp.CurrencyString(nonconnectivity), uisp.CurrencyString(monthly+clamped), fmpstr,
		uisp.CurrencyString(nonconnectivity+monthly+clamped), uisp.CurrencyString(net))
	return receivable, credit
}

// subscriberTag is the key joining a CRM client to its Cust: switchport
// alias: the first word of the last name, company name, or company
// contact last name, whichever is set first.
func subscriberTag(c uisp.ClientRecord) string {
	name := c.LastName
	if name == "" {
		name = c.CompanyName
	}
	if name == "" {
		name = c.CompanyContactLastName
	}
	word, _, _ := strings.Cut(name, " ")
	return word
}

// clientsOf resolves a set of client ids against the org's client map,
// sorted by id so the report is stable across runs.
func clientsOf(clients map[int]uisp.ClientRecord, ids map[int]bool) []uisp.ClientRecord {
	sorted := make([]int, 0, len(ids))
	for id := range ids {
		if _, ok := clients[id]; ok {
			sorted = append(sorted, id)
		}
	}
	sort.Ints(sorted)
	out := make([]uisp.ClientRecord, 0, len(sorted))
	for _, id := range sorted {
		out = append(out, clients[id])
	}
	return out
}

// writeClients lists one plan's clients: credit holders first, then
// debtors, then zero-balance active clients, then zero-balance inactive
// ones. Leads and archived clients only appear when they carry a balance.
func writeClients(b *strings.Builder, clients []uisp.ClientRecord, newServiceIDs map[int]bool, opts Options) {
	line := func(c uisp.ClientRecord) {
		if !opts.Match(c) {
			return
		}
		b.WriteString(uisp.PrintableClient(c))
		if newServiceIDs[c.ID] {
			b.WriteString(" NEWSERVICE")
		}
		b.WriteByte('\n')
	}
	for _, c := range clients {
		if c.AccountBalance > 0 {
			line(c)
		}
	}
	for _, c := range clients {
		if c.AccountBalance < 0 {
			line(c)
		}
	}
	for _, c := range clients {
		if c.AccountBalance == 0 && c.IsActive && !c.IsArchived && !c.IsLead {
			line(c)
		}
	}
	for _, c := range clients {
		if c.AccountBalance == 0 && !c.IsActive && !c.IsArchived && !c.IsLead {
			line(c)
		}
	}
}
