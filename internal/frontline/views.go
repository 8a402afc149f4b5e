package frontline

import (
	"encoding/json"
	"strings"

	"github.com/zgpcy/status-exporter/internal/logger"
)

// HealthScore is -1 when the node is not connected and -2 when a connected
// node reports no score.
func HealthScore(n NodeRecord) float64 {
	if n.ConnectionState != "connected" {
		return -1
	}
	if n.Health == nil || n.Health.Score == nil {
		return -2
	}
	return *n.Health.Score
}

// LinkRow is one wired interface of a node, keyed "<nodeid>-<ifName>".
type LinkRow struct {
	ID           string
	NodeID       string
	NLID         string
	IfName       string
	Duplex       string
	IsUplink     bool
	HasEthClient bool
	LinkSpeed    float64
}

// LinkRows flattens the linkStates arrays of every node.
func LinkRows(nodes map[string]NodeRecord) map[string]LinkRow {
	rows := make(map[string]LinkRow)
	for _, n := range nodes {
		for _, link := range n.LinkStates {
			id := n.ID + "-" + link.IfName
			rows[id] = LinkRow{
				ID:           id,
				NodeID:       n.ID,
				NLID:         n.NLID,
				IfName:       link.IfName,
				Duplex:       link.Duplex,
				IsUplink:     link.IsUplink,
				HasEthClient: link.HasEthClient,
				LinkSpeed:    link.LinkSpeed,
			}
		}
	}
	return rows
}

// ParentRow describes the link from a node to its parent. Only nodes with a
// non-empty leafToRoot path have one.
type ParentRow struct {
	ID       string
	NLID     string
	Radio    string
	ParentID string
	Channel  float64
}

// ParentRows derives one row per non-root node. The radio band comes from
// the first leafToRoot hop, or is inferred from the per-band channel
// numbers when the hop does not name it.
func ParentRows(nodes map[string]NodeRecord) map[string]ParentRow {
	rows := make(map[string]ParentRow)
	for _, n := range nodes {
		if len(n.LeafToRoot) == 0 {
			continue
		}
		hop := n.LeafToRoot[0]
		radio := hop.Radio
		if radio == "" {
			radio = radioFallback(n)
		}
		rows[n.ID] = ParentRow{
			ID:       n.ID,
			NLID:     n.NLID,
			Radio:    radio,
			ParentID: hop.ID,
			Channel:  parentWifiChannel(n),
		}
	}
	return rows
}

// radioFallback infers the backhaul band by matching the leaf-to-root
// channel, or failing that the backhaul channel, against the per-band
// channel numbers.
func radioFallback(n NodeRecord) string {
	channel := n.LeafToRoot[0].Channel
	if channel == nil {
		channel = n.BackhaulChannel
	}
	if channel == nil {
		return "unknown_channel"
	}
	bands := []struct {
		name  string
		value *float64
	}{
		{"2G", n.Channel2G},
		{"5GU", n.Channel5GU},
		{"5GL", n.Channel5GL},
		{"5G", n.Channel5G},
		{"6G", n.Channel6G},
	}
	for _, band := range bands {
		if band.value != nil && *band.value == *channel {
			return band.name
		}
	}
	return "unknown_band"
}

// parentWifiChannel is -1 when the backhaul is not wifi, the leaf-to-root
// channel when reported, the backhaul channel otherwise, -99 when neither
// is known. The caller guarantees a non-empty leafToRoot.
func parentWifiChannel(n NodeRecord) float64 {
	if n.BackhaulType != "wifi" {
		return -1
	}
	if ch := n.LeafToRoot[0].Channel; ch != nil {
		return *ch
	}
	if n.BackhaulChannel != nil {
		return *n.BackhaulChannel
	}
	return -99
}

// SpeedRow is the most recent speed test of a node, keyed by node id.
type SpeedRow struct {
	ID         string
	NLID       string
	Status     string
	Trigger    string
	Gateway    string
	ServerIP   string
	ServerHost string
	ServerID   json.Number
	StartedAt  string
	RTT        float64
	Upload     float64
	Download   float64
}

// SpeedTestRows derives one row per node carrying a speedTest sub-document.
func SpeedTestRows(nodes map[string]NodeRecord) map[string]SpeedRow {
	rows := make(map[string]SpeedRow)
	for _, n := range nodes {
		if n.SpeedTest == nil {
			continue
		}
		st := n.SpeedTest
		rows[n.ID] = SpeedRow{
			ID:         n.ID,
			NLID:       n.NLID,
			Status:     st.Status,
			Trigger:    st.Trigger,
			Gateway:    st.Gateway,
			ServerIP:   st.ServerIP,
			ServerHost: st.ServerHost,
			ServerID:   st.ServerID,
			StartedAt:  st.StartedAt,
			RTT:        st.RTT,
			Upload:     st.Upload,
			Download:   st.Download,
		}
	}
	return rows
}

// ChannelRow is one radio of a node, keyed "<nodeid>-<freqBand>".
type ChannelRow struct {
	ID           string
	NodeID       string
	NLID         string
	FreqBand     string
	ChannelWidth json.Number
	Channel      float64
}

// ChannelRows flattens the radioStats arrays of every node, resolving each
// band name to the node's per-band channel number.
func ChannelRows(nodes map[string]NodeRecord, log *logger.Logger) map[string]ChannelRow {
	rows := make(map[string]ChannelRow)
	for _, n := range nodes {
		for _, stat := range n.RadioStats {
			id := n.ID + "-" + stat.FreqBand
			rows[id] = ChannelRow{
				ID:           id,
				NodeID:       n.ID,
				NLID:         n.NLID,
				FreqBand:     stat.FreqBand,
				ChannelWidth: stat.ChannelWidth,
				Channel:      bandChannel(n, stat.FreqBand, log),
			}
		}
	}
	return rows
}

// bandChannel resolves a frequency band name to the matching per-band
// channel attribute. The stats spell the low band "2.4G" while the
// attribute is named 2gChannel.
func bandChannel(n NodeRecord, freqBand string, log *logger.Logger) float64 {
	var ch *float64
	switch strings.ToLower(freqBand) {
	case "2g", "2.4g":
		ch = n.Channel2G
	case "5g":
		ch = n.Channel5G
	case "5gl":
		ch = n.Channel5GL
	case "5gu":
		ch = n.Channel5GU
	case "6g":
		ch = n.Channel6G
	}
	if ch == nil {
		log.Info("Unknown frequency band", "band", freqBand, "node", n.ID)
		return -999
	}
	return *ch
}
