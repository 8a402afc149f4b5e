package frontline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/zgpcy/status-exporter/internal/logger"
	"github.com/zgpcy/status-exporter/internal/store"
)

// fakeSource serves canned nodes per location and advances a mock clock on
// every fetch so the poll budget is consumed deterministically.
type fakeSource struct {
	clock   *quartz.Mock
	advance time.Duration

	mu    sync.Mutex
	calls []string
	nodes map[string][]NodeRecord
	fail  map[string]error
}

func (f *fakeSource) Nodes(_ context.Context, custID, locID string) ([]NodeRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, locID)
	err := f.fail[locID]
	recs := f.nodes[locID]
	f.mu.Unlock()
	if f.advance > 0 {
		f.clock.Advance(f.advance)
	}
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (f *fakeSource) took() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls
	f.calls = nil
	return calls
}

// inventory builds one customer with n locations named l1..ln, each hosting
// a single node named n-l<i>.
func inventory(n int) (map[string]Customer, map[string]Location, map[string][]NodeRecord) {
	customers := map[string]Customer{"c1": {ID: "c1", AccountID: "9001"}}
	locations := make(map[string]Location, n)
	nodes := make(map[string][]NodeRecord, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("l%d", i)
		locations[id] = Location{ID: id, CustID: "c1"}
		nodes[id] = []NodeRecord{{ID: "n-" + id, MAC: "aa:bb"}}
	}
	return customers, locations, nodes
}

func wantCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("fetched locations %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fetched locations %v, want %v", got, want)
		}
	}
}

// TestPollPrimes tests that the first poll fetches every location at once
func TestPollPrimes(t *testing.T) {
	mock := quartz.NewMock(t)
	customers, locations, nodeData := inventory(3)
	src := &fakeSource{clock: mock, nodes: nodeData}
	p := NewNodePoller(src, 10*time.Second, mock, logger.New("error"))
	nodes := store.New[string, NodeRecord]()

	if err := p.Poll(context.Background(), customers, locations, nodes); err != nil {
		t.Fatalf("Poll() unexpected error: %v", err)
	}
	wantCalls(t, src.took(), []string{"l1", "l2", "l3"})
	if nodes.Len() != 3 {
		t.Fatalf("store holds %d nodes, want 3", nodes.Len())
	}
	rec, _ := nodes.Get("n-l2")
	if rec.NLID != "9001" || rec.CustID != "c1" || rec.LocID != "l2" {
		t.Errorf("annotations = %q/%q/%q, want 9001/c1/l2", rec.NLID, rec.CustID, rec.LocID)
	}
	if rec.MAC != "AA:BB" {
		t.Errorf("MAC = %q, want uppercased", rec.MAC)
	}
}

// TestPollBatches tests the budgeted cursor walk and the wrap-around
func TestPollBatches(t *testing.T) {
	mock := quartz.NewMock(t)
	customers, locations, nodeData := inventory(6)
	src := &fakeSource{clock: mock, nodes: nodeData}
	p := NewNodePoller(src, 10*time.Second, mock, logger.New("error"))
	nodes := store.New[string, NodeRecord]()
	ctx := context.Background()

	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("prime Poll() unexpected error: %v", err)
	}
	src.took()

	// Each fetch consumes 3s of the 10s budget: four locations per poll.
	src.advance = 3 * time.Second
	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("Poll() unexpected error: %v", err)
	}
	wantCalls(t, src.took(), []string{"l1", "l2", "l3", "l4"})

	// The next poll resumes at l5 and wraps back to the start.
	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("Poll() unexpected error: %v", err)
	}
	wantCalls(t, src.took(), []string{"l5", "l6", "l1", "l2"})
}

// TestPollMergesFreshRecords tests that batch polls update visited nodes
// and leave the rest alone
func TestPollMergesFreshRecords(t *testing.T) {
	mock := quartz.NewMock(t)
	customers, locations, nodeData := inventory(2)
	src := &fakeSource{clock: mock, nodes: nodeData}
	p := NewNodePoller(src, 10*time.Second, mock, logger.New("error"))
	nodes := store.New[string, NodeRecord]()
	ctx := context.Background()

	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("prime Poll() unexpected error: %v", err)
	}

	src.mu.Lock()
	src.nodes["l1"] = []NodeRecord{{ID: "n-l1", MAC: "aa:bb", ConnectionState: "connected"}}
	src.mu.Unlock()
	src.advance = 6 * time.Second // two locations fit in the budget
	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("Poll() unexpected error: %v", err)
	}

	rec, _ := nodes.Get("n-l1")
	if rec.ConnectionState != "connected" {
		t.Errorf("n-l1 ConnectionState = %q, want refreshed value", rec.ConnectionState)
	}
	if nodes.Len() != 2 {
		t.Errorf("store holds %d nodes, want 2", nodes.Len())
	}
}

// TestPollErrorSkipsLocation tests that a failed location is passed over on
// the next poll and earlier merges survive
func TestPollErrorSkipsLocation(t *testing.T) {
	mock := quartz.NewMock(t)
	customers, locations, nodeData := inventory(4)
	src := &fakeSource{clock: mock, nodes: nodeData}
	p := NewNodePoller(src, 10*time.Second, mock, logger.New("error"))
	nodes := store.New[string, NodeRecord]()
	ctx := context.Background()

	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("prime Poll() unexpected error: %v", err)
	}
	src.took()

	boom := errors.New("boom")
	src.mu.Lock()
	src.fail = map[string]error{"l2": boom}
	src.mu.Unlock()
	src.advance = 3 * time.Second
	if err := p.Poll(ctx, customers, locations, nodes); !errors.Is(err, boom) {
		t.Fatalf("Poll() = %v, want boom", err)
	}
	wantCalls(t, src.took(), []string{"l1", "l2"})
	if nodes.Len() != 4 {
		t.Errorf("store holds %d nodes, want all 4 after partial batch", nodes.Len())
	}

	// l2 was consumed by the failed attempt; the next poll starts at l3.
	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()
	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("Poll() unexpected error: %v", err)
	}
	wantCalls(t, src.took(), []string{"l3", "l4", "l1", "l2"})
}

// TestPrimeFailureRetriesInFull tests that a failed prime leaves the store
// empty so the next poll primes again
func TestPrimeFailureRetriesInFull(t *testing.T) {
	mock := quartz.NewMock(t)
	customers, locations, nodeData := inventory(3)
	boom := errors.New("boom")
	src := &fakeSource{clock: mock, nodes: nodeData, fail: map[string]error{"l2": boom}}
	p := NewNodePoller(src, 10*time.Second, mock, logger.New("error"))
	nodes := store.New[string, NodeRecord]()
	ctx := context.Background()

	if err := p.Poll(ctx, customers, locations, nodes); !errors.Is(err, boom) {
		t.Fatalf("Poll() = %v, want boom", err)
	}
	if nodes.Len() != 0 {
		t.Fatalf("store holds %d nodes after failed prime, want 0", nodes.Len())
	}

	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()
	src.took()
	if err := p.Poll(ctx, customers, locations, nodes); err != nil {
		t.Fatalf("Poll() unexpected error: %v", err)
	}
	wantCalls(t, src.took(), []string{"l1", "l2", "l3"})
	if nodes.Len() != 3 {
		t.Errorf("store holds %d nodes, want 3", nodes.Len())
	}
}
