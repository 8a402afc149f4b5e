package frontline

import (
	"encoding/json"
	"strings"
)

// Customer is one account of the partner group.
type Customer struct {
	ID                       string  `json:"id"`
	AccountID                string  `json:"accountId"`
	Name                     string  `json:"name"`
	Email                    string  `json:"email"`
	EmailVerified            bool    `json:"emailVerified"`
	Locked                   bool    `json:"locked"`
	AcceptLanguage           string  `json:"acceptLanguage"`
	CreatedAt                string  `json:"createdAt"`
	FirstKnownLoginTimestamp *string `json:"firstKnownLoginTimestamp"`
}

// Location is one deployment site of a customer.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// CustID is annotated at fetch time, the API nests locations under
	// customers instead of naming the owner.
	CustID string `json:"-"`
}

// Hop is one entry of a node's leafToRoot path. The first hop is the node's
// parent.
type Hop struct {
	ID      string   `json:"id"`
	Radio   string   `json:"radio"`
	Channel *float64 `json:"channel"`
}

// LinkState is one wired interface of a node.
type LinkState struct {
	IfName       string  `json:"ifName"`
	Duplex       string  `json:"duplex"`
	LinkSpeed    float64 `json:"linkSpeed"`
	IsUplink     bool    `json:"isUplink"`
	HasEthClient bool    `json:"hasEthClient"`
}

// SpeedTest is the most recent speed test of a node. Download, Upload and
// RTT are only meaningful when Status is "succeeded".
type SpeedTest struct {
	StartedAt  string      `json:"startedAt"`
	Gateway    string      `json:"gateway"`
	Status     string      `json:"status"`
	Trigger    string      `json:"trigger"`
	ServerIP   string      `json:"serverIp"`
	ServerHost string      `json:"serverHost"`
	ServerID   json.Number `json:"serverId"`
	Download   float64     `json:"download"`
	Upload     float64     `json:"upload"`
	RTT        float64     `json:"rtt"`
}

// Health is the node health sub-document.
type Health struct {
	Status string   `json:"status"`
	Score  *float64 `json:"score"`
}

// RadioStat is one radio of a node.
type RadioStat struct {
	FreqBand     string      `json:"freqBand"`
	ChannelWidth json.Number `json:"channelWidth"`
}

// NodeRecord is one mesh node. Pointer fields are absent from the payload
// for some node models and firmware versions.
type NodeRecord struct {
	ID                      string      `json:"id"`
	Model                   string      `json:"model"`
	MAC                     string      `json:"mac"`
	Ethernet1MAC            string      `json:"ethernet1Mac"`
	SerialNumber            string      `json:"serialNumber"`
	ShipDate                string      `json:"shipDate"`
	PartNumber              string      `json:"partNumber"`
	FirmwareVersion         string      `json:"firmwareVersion"`
	Nickname                string      `json:"nickname"`
	BackhaulType            string      `json:"backhaulType"`
	NetworkMode             string      `json:"networkMode"`
	ConnectionState         string      `json:"connectionState"`
	IP                      string      `json:"ip"`
	WanIP                   string      `json:"wanIp"`
	PublicIP                string      `json:"publicIp"`
	OpenSyncVersion         string      `json:"openSyncVersion"`
	ConnectedDeviceCount    *float64    `json:"connectedDeviceCount"`
	ConnectionStateChangeAt *string     `json:"connectionStateChangeAt"`
	BootAt                  *string     `json:"bootAt"`
	ClaimedAt               *string     `json:"claimedAt"`
	LeafToRoot              []Hop       `json:"leafToRoot"`
	LinkStates              []LinkState `json:"linkStates"`
	SpeedTest               *SpeedTest  `json:"speedTest"`
	Health                  *Health     `json:"health"`
	RadioStats              []RadioStat `json:"radioStats"`
	BackhaulChannel         *float64    `json:"backhaulChannel"`
	Channel2G               *float64    `json:"2gChannel"`
	Channel5G               *float64    `json:"5gChannel"`
	Channel5GL              *float64    `json:"5glChannel"`
	Channel5GU              *float64    `json:"5guChannel"`
	Channel6G               *float64    `json:"6gChannel"`

	// Annotations applied at fetch time, not part of the API payload.
	NLID   string `json:"-"`
	CustID string `json:"-"`
	LocID  string `json:"-"`
}

// Annotate stamps a node with its owner coordinates and uppercases the MAC
// addresses so they join with switch-side metrics, which use uppercase.
func Annotate(n NodeRecord, accountID, custID, locID string) NodeRecord {
	n.MAC = strings.ToUpper(n.MAC)
	n.Ethernet1MAC = strings.ToUpper(n.Ethernet1MAC)
	n.NLID = accountID
	n.CustID = custID
	n.LocID = locID
	return n
}
