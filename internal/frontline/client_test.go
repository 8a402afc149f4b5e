package frontline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/zgpcy/status-exporter/internal/logger"
)

// portal fakes the token endpoint and a small partner inventory.
type portal struct {
	mu         sync.Mutex
	authCalls  int
	authHeader string
	authBody   string
	bearers    []string
}

func (p *portal) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		p.mu.Lock()
		p.authCalls++
		n := p.authCalls
		p.authHeader = r.Header.Get("Authorization")
		p.authBody = string(body)
		p.mu.Unlock()
		fmt.Fprintf(w, `{"access_token":"jwt%d","expires_in":720}`, n)
	})
	record := func(r *http.Request) {
		p.mu.Lock()
		p.bearers = append(p.bearers, r.Header.Get("Authorization"))
		p.mu.Unlock()
	}
	mux.HandleFunc("/Groups/pid/customers", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		fmt.Fprint(w, `[{
			"id":"c1","accountId":"9001","name":"Ada Lovelace","email":"ada@example.net",
			"emailVerified":true,"createdAt":"2024-01-01T00:00:00.000Z"
		}]`)
	})
	mux.HandleFunc("/Customers/c1/locations", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		fmt.Fprint(w, `[{"id":"l1","name":"Home"}]`)
	})
	mux.HandleFunc("/Customers/c1/locations/l1/nodes", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		fmt.Fprint(w, `{"nodes":[{
			"id":"n1","mac":"aa:bb:cc:dd:ee:ff","connectionState":"connected",
			"claimedAt":"2024-01-02T00:00:00.000Z","bootAt":"2024-02-07T10:36:31.000Z",
			"health":{"status":"excellent","score":5},
			"leafToRoot":[],"linkStates":[{"ifName":"eth0","linkSpeed":1000}]
		}]}`)
	})
	return httptest.NewServer(mux)
}

func (p *portal) client(url string, clock quartz.Clock) *Client {
	return New(Config{
		URLPrefix: url,
		PartnerID: "pid",
		AuthToken: "partner-secret",
		AuthURL:   url + "/token",
		AuthBody:  "grant_type=client_credentials",
		Clock:     clock,
		Logger:    logger.New("error"),
	})
}

// TestJWTReauth tests that the JWT refreshes once half its lifetime elapsed
func TestJWTReauth(t *testing.T) {
	p := &portal{}
	srv := p.server(t)
	defer srv.Close()

	mock := quartz.NewMock(t)
	c := p.client(srv.URL, mock)
	ctx := context.Background()

	if _, err := c.Customers(ctx); err != nil {
		t.Fatalf("Customers() unexpected error: %v", err)
	}
	// Half of expires_in=720s is 360s. One second short must not re-auth.
	mock.Advance(359 * time.Second)
	if _, err := c.Customers(ctx); err != nil {
		t.Fatalf("Customers() unexpected error: %v", err)
	}
	mock.Advance(2 * time.Second)
	if _, err := c.Customers(ctx); err != nil {
		t.Fatalf("Customers() unexpected error: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.authCalls != 2 {
		t.Errorf("auth calls = %d, want 2", p.authCalls)
	}
	if p.authHeader != "partner-secret" {
		t.Errorf("auth header = %q, want partner-secret", p.authHeader)
	}
	if p.authBody != "grant_type=client_credentials" {
		t.Errorf("auth body = %q", p.authBody)
	}
	want := []string{"Bearer jwt1", "Bearer jwt1", "Bearer jwt2"}
	if len(p.bearers) != len(want) {
		t.Fatalf("bearers = %v, want %v", p.bearers, want)
	}
	for i := range want {
		if p.bearers[i] != want[i] {
			t.Errorf("bearer[%d] = %q, want %q", i, p.bearers[i], want[i])
		}
	}
}

// TestRefreshMeta tests inventory assembly and location annotation
func TestRefreshMeta(t *testing.T) {
	p := &portal{}
	srv := p.server(t)
	defer srv.Close()

	c := p.client(srv.URL, nil)
	meta, err := c.RefreshMeta(context.Background())
	if err != nil {
		t.Fatalf("RefreshMeta() unexpected error: %v", err)
	}
	cust, ok := meta.Customers["c1"]
	if !ok || cust.AccountID != "9001" || !cust.EmailVerified {
		t.Errorf("customer = %+v, want c1 with account 9001", cust)
	}
	loc, ok := meta.Locations["l1"]
	if !ok || loc.CustID != "c1" {
		t.Errorf("location = %+v, want l1 annotated with c1", loc)
	}
}

// TestNodes tests the nodes envelope unwrap and sub-document decoding
func TestNodes(t *testing.T) {
	p := &portal{}
	srv := p.server(t)
	defer srv.Close()

	c := p.client(srv.URL, nil)
	nodes, err := c.Nodes(context.Background(), "c1", "l1")
	if err != nil {
		t.Fatalf("Nodes() unexpected error: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	n := nodes[0]
	if n.ID != "n1" || n.ConnectionState != "connected" {
		t.Errorf("node = %+v", n)
	}
	if n.ClaimedAt == nil || *n.ClaimedAt != "2024-01-02T00:00:00.000Z" {
		t.Errorf("ClaimedAt = %v, want 2024-01-02T00:00:00.000Z", n.ClaimedAt)
	}
	if n.Health == nil || n.Health.Score == nil || *n.Health.Score != 5 {
		t.Errorf("Health = %+v, want score 5", n.Health)
	}
	if len(n.LinkStates) != 1 || n.LinkStates[0].IfName != "eth0" {
		t.Errorf("LinkStates = %+v", n.LinkStates)
	}
}
