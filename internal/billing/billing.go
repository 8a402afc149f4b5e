// Package billing implements the monthly capitation arithmetic and renders
// the per-organization subscriber summary used by the weekly email and the
// report CLI.
//
// Each organization's config carries billing instructions per service plan:
// fixed management, ISP and connectivity amounts per active service, plus
// an optional per-service billing fee that defaults to a percentage of the
// plan's revenue. Plans without an instruction are capitated to NLI in
// full. Connectivity totals are clamped to the organization's configured
// band before computing the net split.
package billing

import (
	"math"
	"sort"

	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/uisp"
)

const (
	// DefaultBillingRate is the share of plan revenue charged as the
	// billing fee when an instruction does not set nli_billing_fee.
	DefaultBillingRate = 0.03

	// DefaultConnectivityMax bounds the connectivity clamp when an
	// organization does not set capitated_connectivity_max.
	DefaultConnectivityMax = 100000000
)

// PlanTotals accumulates the active services and revenue of one service
// plan and computes its capitation split. A nil Instruction means the plan
// is not in any organization's billing instructions; its entire revenue is
// capitated to NLI.
type PlanTotals struct {
	PlanID      int
	Instruction *config.Instruction
	Actives     int
	Revenue     float64
}

// Register adds one active service to the totals.
func (p *PlanTotals) Register(s uisp.ServiceRecord) {
	p.Actives++
	p.Revenue += s.Price
}

// Target returns the subscriber target, zero for uninstructed plans.
func (p *PlanTotals) Target() int {
	if p.Instruction == nil {
		return 0
	}
	return p.Instruction.SubscriberTarget
}

// CapitatedToNLI is the management and ISP capitation plus the billing fee.
func (p *PlanTotals) CapitatedToNLI() float64 {
	if p.Instruction == nil {
		return p.Revenue
	}
	perService := p.Instruction.Management + p.Instruction.ISP
	fee := DefaultBillingRate * p.Revenue
	if p.Instruction.BillingFee != nil {
		fee = *p.Instruction.BillingFee * float64(p.Actives)
	}
	return perService*float64(p.Actives) + fee
}

// CapitatedConnectivity is the connectivity capitation before clamping.
func (p *PlanTotals) CapitatedConnectivity() float64 {
	if p.Instruction == nil {
		return 0
	}
	return p.Instruction.CapitatedConnectivity * float64(p.Actives)
}

// Remainder is the plan revenue left after the NLI capitation.
func (p *PlanTotals) Remainder() float64 {
	if p.Instruction == nil {
		return 0
	}
	return p.Revenue - p.CapitatedToNLI()
}

// Ledger resolves service plans to the organization that bills them.
// Plan ids are unique across organizations.
type Ledger struct {
	plans map[int]ledgerEntry
}

type ledgerEntry struct {
	org         string
	instruction config.Instruction
}

// NewLedger indexes the billing instructions of every configured
// organization by service plan id.
func NewLedger(orgs map[string]config.Organization) *Ledger {
	l := &Ledger{plans: make(map[int]ledgerEntry)}
	for name, org := range orgs {
		for spid, bi := range org.BillingInstructions {
			l.plans[spid] = ledgerEntry{org: name, instruction: bi}
		}
	}
	return l
}

// Owner returns the billing organization of a plan and a copy of its
// instruction, or "" and nil for uninstructed plans.
func (l *Ledger) Owner(planID int) (string, *config.Instruction) {
	e, ok := l.plans[planID]
	if !ok {
		return "", nil
	}
	bi := e.instruction
	return e.org, &bi
}

// ConfigOrg returns the name of the configured organization whose billing
// instructions cover org's service plans. The first instructed plan in
// ascending plan-id order decides; empty when no plan is instructed.
func ConfigOrg(org OrgData, ledger *Ledger) string {
	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, s := range org.Services {
		if !seen[s.ServicePlanID] {
			seen[s.ServicePlanID] = true
			ids = append(ids, s.ServicePlanID)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		if owner, _ := ledger.Owner(id); owner != "" {
			return owner
		}
	}
	return ""
}

// clampConnectivity bounds an organization's connectivity capitation to its
// configured band.
func clampConnectivity(total float64, org config.Organization) float64 {
	upper := float64(DefaultConnectivityMax)
	if org.CapitatedConnectivityMax != nil {
		upper = *org.CapitatedConnectivityMax
	}
	return math.Min(math.Max(total, org.CapitatedConnectivityMin), upper)
}
