package frontline

import (
	"testing"

	"github.com/zgpcy/status-exporter/internal/logger"
)

func f64ptr(v float64) *float64 { return &v }

// TestHealthScore tests the connected/score fallback values
func TestHealthScore(t *testing.T) {
	tests := []struct {
		name string
		node NodeRecord
		want float64
	}{
		{"disconnected", NodeRecord{ConnectionState: "disconnected"}, -1},
		{"connected without health", NodeRecord{ConnectionState: "connected"}, -2},
		{"connected without score", NodeRecord{ConnectionState: "connected", Health: &Health{Status: "poor"}}, -2},
		{"healthy", NodeRecord{ConnectionState: "connected", Health: &Health{Score: f64ptr(5)}}, 5},
	}
	for _, tt := range tests {
		if got := HealthScore(tt.node); got != tt.want {
			t.Errorf("HealthScore(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// TestLinkRows tests composite keys and field carry-over
func TestLinkRows(t *testing.T) {
	nodes := map[string]NodeRecord{
		"n1": {
			ID:   "n1",
			NLID: "9001",
			LinkStates: []LinkState{
				{IfName: "eth0", Duplex: "full", LinkSpeed: 1000, IsUplink: true},
				{IfName: "eth1", Duplex: "half", LinkSpeed: 65535, HasEthClient: true},
			},
		},
		"n2": {ID: "n2"},
	}

	rows := LinkRows(nodes)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	eth0 := rows["n1-eth0"]
	if eth0.NodeID != "n1" || eth0.NLID != "9001" || eth0.LinkSpeed != 1000 || !eth0.IsUplink {
		t.Errorf("eth0 row = %+v", eth0)
	}
	if rows["n1-eth1"].LinkSpeed != 65535 {
		t.Errorf("eth1 LinkSpeed = %v, want 65535", rows["n1-eth1"].LinkSpeed)
	}
}

// TestParentRows tests radio naming and wifi channel resolution
func TestParentRows(t *testing.T) {
	tests := []struct {
		name        string
		node        NodeRecord
		wantRadio   string
		wantChannel float64
	}{
		{
			"radio named by hop",
			NodeRecord{
				ID:           "n1",
				BackhaulType: "wifi",
				LeafToRoot:   []Hop{{ID: "root", Radio: "5G", Channel: f64ptr(44)}},
			},
			"5G", 44,
		},
		{
			"radio inferred from band channels",
			NodeRecord{
				ID:           "n2",
				BackhaulType: "wifi",
				LeafToRoot:   []Hop{{ID: "root", Channel: f64ptr(37)}},
				Channel6G:    f64ptr(37),
				Channel5G:    f64ptr(44),
			},
			"6G", 37,
		},
		{
			"channel matches no band",
			NodeRecord{
				ID:           "n3",
				BackhaulType: "wifi",
				LeafToRoot:   []Hop{{ID: "root", Channel: f64ptr(7)}},
				Channel2G:    f64ptr(6),
			},
			"unknown_band", 7,
		},
		{
			"no channel anywhere",
			NodeRecord{
				ID:           "n4",
				BackhaulType: "wifi",
				LeafToRoot:   []Hop{{ID: "root"}},
			},
			"unknown_channel", -99,
		},
		{
			"wired backhaul",
			NodeRecord{
				ID:           "n5",
				BackhaulType: "ethernet",
				LeafToRoot:   []Hop{{ID: "root", Channel: f64ptr(44)}},
				Channel5G:    f64ptr(44),
			},
			"5G", -1,
		},
		{
			"backhaul channel fallback",
			NodeRecord{
				ID:              "n6",
				BackhaulType:    "wifi",
				LeafToRoot:      []Hop{{ID: "root"}},
				BackhaulChannel: f64ptr(157),
				Channel5GU:      f64ptr(157),
			},
			"5GU", 157,
		},
	}
	for _, tt := range tests {
		rows := ParentRows(map[string]NodeRecord{tt.node.ID: tt.node})
		row, ok := rows[tt.node.ID]
		if !ok {
			t.Fatalf("%s: no parent row derived", tt.name)
		}
		if row.Radio != tt.wantRadio {
			t.Errorf("%s: Radio = %q, want %q", tt.name, row.Radio, tt.wantRadio)
		}
		if row.Channel != tt.wantChannel {
			t.Errorf("%s: Channel = %v, want %v", tt.name, row.Channel, tt.wantChannel)
		}
		if row.ParentID != "root" {
			t.Errorf("%s: ParentID = %q, want root", tt.name, row.ParentID)
		}
	}
}

// TestParentRowsSkipsRoots tests that gateway nodes derive no parent row
func TestParentRowsSkipsRoots(t *testing.T) {
	rows := ParentRows(map[string]NodeRecord{"gw": {ID: "gw", BackhaulType: "ethernet"}})
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0 for root-only inventory", len(rows))
	}
}

// TestSpeedTestRows tests filtering and field carry-over
func TestSpeedTestRows(t *testing.T) {
	nodes := map[string]NodeRecord{
		"n1": {
			ID:   "n1",
			NLID: "9001",
			SpeedTest: &SpeedTest{
				Status:    "succeeded",
				Trigger:   "scheduled",
				StartedAt: "2026-02-07T10:36:31.000Z",
				ServerID:  "3109",
				Download:  940.2,
				Upload:    41.7,
				RTT:       12,
			},
		},
		"n2": {ID: "n2"},
	}

	rows := SpeedTestRows(nodes)
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	row := rows["n1"]
	if row.NLID != "9001" || row.Download != 940.2 || row.ServerID != "3109" {
		t.Errorf("speed row = %+v", row)
	}
}

// TestChannelRows tests band name resolution including the 2.4G spelling
func TestChannelRows(t *testing.T) {
	nodes := map[string]NodeRecord{
		"n1": {
			ID:        "n1",
			NLID:      "9001",
			Channel2G: f64ptr(6),
			Channel5G: f64ptr(44),
			RadioStats: []RadioStat{
				{FreqBand: "2.4G", ChannelWidth: "40"},
				{FreqBand: "5G", ChannelWidth: "80"},
				{FreqBand: "60G", ChannelWidth: "160"},
			},
		},
	}

	rows := ChannelRows(nodes, logger.New("error"))
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if got := rows["n1-2.4G"].Channel; got != 6 {
		t.Errorf("2.4G channel = %v, want 6", got)
	}
	if got := rows["n1-5G"].Channel; got != 44 {
		t.Errorf("5G channel = %v, want 44", got)
	}
	if got := rows["n1-60G"].Channel; got != -999 {
		t.Errorf("unknown band channel = %v, want -999", got)
	}
	if got := rows["n1-5G"].ChannelWidth; got != "80" {
		t.Errorf("5G width = %v, want 80", got)
	}
}

// TestAnnotate tests MAC uppercasing and owner stamping
func TestAnnotate(t *testing.T) {
	n := Annotate(NodeRecord{ID: "n1", MAC: "aa:bb:cc:dd:ee:ff", Ethernet1MAC: "00:11:22:33:44:55"}, "9001", "c1", "l1")
	if n.MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("MAC = %q, want uppercase", n.MAC)
	}
	if n.Ethernet1MAC != "00:11:22:33:44:55" {
		t.Errorf("Ethernet1MAC = %q, want unchanged digits uppercased", n.Ethernet1MAC)
	}
	if n.NLID != "9001" || n.CustID != "c1" || n.LocID != "l1" {
		t.Errorf("annotations = %q/%q/%q, want 9001/c1/l1", n.NLID, n.CustID, n.LocID)
	}
}
