package frontline

import (
	"context"
	"sort"
	"time"

	"github.com/coder/quartz"

	"github.com/zgpcy/status-exporter/internal/logger"
	"github.com/zgpcy/status-exporter/internal/store"
)

// NodeSource fetches the raw nodes at one location. *Client implements it.
type NodeSource interface {
	Nodes(ctx context.Context, custID, locID string) ([]NodeRecord, error)
}

// NodePoller walks the location inventory a few locations per refresh,
// merging the annotated nodes it fetches into the node store. The first
// poll against an empty store fetches every location in one pass; after
// that each poll spends at most Budget wall-clock time, resuming where the
// previous poll stopped. The cursor advances past a location before its
// fetch, so a failing location is skipped rather than retried.
//
// Poll is not safe for concurrent use; the refresh scheduler guarantees at
// most one poll in flight.
type NodePoller struct {
	src    NodeSource
	budget time.Duration
	clock  quartz.Clock
	log    *logger.Logger

	cursor []string
	next   int
}

// NewNodePoller creates a poller with the given per-poll time budget.
func NewNodePoller(src NodeSource, budget time.Duration, clock quartz.Clock, log *logger.Logger) *NodePoller {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &NodePoller{src: src, budget: budget, clock: clock, log: log}
}

// Poll updates a slice of the node store from the current customer and
// location inventory. Nodes merged before an error survive it.
func (p *NodePoller) Poll(ctx context.Context, customers map[string]Customer, locations map[string]Location, nodes *store.Store[string, NodeRecord]) error {
	if nodes.Len() == 0 {
		return p.prime(ctx, customers, locations, nodes)
	}

	start := p.clock.Now()
	visited := 0
	for p.clock.Since(start) < p.budget {
		if p.next >= len(p.cursor) {
			p.cursor = locationIDs(locations)
			p.next = 0
			p.log.Info("Updated nodes at all known locations; starting over")
			if len(p.cursor) == 0 {
				break
			}
		}
		locID := p.cursor[p.next]
		p.next++
		loc, ok := locations[locID]
		if !ok {
			// The location disappeared from the inventory since the cursor
			// was built.
			continue
		}
		fetched, err := p.src.Nodes(ctx, loc.CustID, loc.ID)
		if err != nil {
			return err
		}
		batch := make(map[string]NodeRecord, len(fetched))
		for _, n := range fetched {
			batch[n.ID] = Annotate(n, customers[loc.CustID].AccountID, loc.CustID, loc.ID)
		}
		nodes.Merge(batch)
		visited++
	}
	p.log.Debug("Node batch complete", "locations", visited)
	return nil
}

// prime fetches every location in one pass and replaces the store. It runs
// whenever the store is empty, so a failed prime is retried in full on the
// next poll.
func (p *NodePoller) prime(ctx context.Context, customers map[string]Customer, locations map[string]Location, nodes *store.Store[string, NodeRecord]) error {
	p.log.Info("Refreshing all nodes")
	all := make(map[string]NodeRecord)
	for _, locID := range locationIDs(locations) {
		loc := locations[locID]
		fetched, err := p.src.Nodes(ctx, loc.CustID, loc.ID)
		if err != nil {
			return err
		}
		for _, n := range fetched {
			all[n.ID] = Annotate(n, customers[loc.CustID].AccountID, loc.CustID, loc.ID)
		}
	}
	nodes.Replace(all)
	p.cursor = locationIDs(locations)
	p.next = 0
	p.log.Info("Refresh complete", "nodes", len(all))
	return nil
}

// locationIDs returns the inventory keys in a stable order so every
// cursor pass visits locations the same way.
func locationIDs(locations map[string]Location) []string {
	ids := make([]string, 0, len(locations))
	for id := range locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
