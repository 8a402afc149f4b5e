package observium

import (
	"encoding/json"
	"strings"
)

// DeviceRecord is one monitored device. The API returns devices keyed by id
// in an envelope object; the id is copied onto the record at fetch time.
type DeviceRecord struct {
	ID      string `json:"-"`
	SysName string `json:"sysName"`
}

// Owner returns the organization component of the device's sysName, its
// second dot-separated label. Unqualified names own nothing.
func (d DeviceRecord) Owner() string {
	parts := strings.Split(d.SysName, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// PortRecord is one switchport. ID and DeviceID are set at fetch time: the
// port id keys the reply envelope and the device id names the request.
type PortRecord struct {
	ID            string      `json:"-"`
	DeviceID      string      `json:"-"`
	IfAlias       string      `json:"ifAlias"`
	IfSpeed       json.Number `json:"ifSpeed"`
	IfAdminStatus string      `json:"ifAdminStatus"`
}

// custPrefix tags subscriber-facing switchports in the port alias.
const custPrefix = "Cust: "

// IsCustomerPort reports whether a port serves a billable subscriber:
// tagged with the customer prefix, assigned, not a test drop, and
// administratively up.
func IsCustomerPort(p PortRecord) bool {
	a := p.IfAlias
	return strings.HasPrefix(a, custPrefix) &&
		a != custPrefix+"UNASSIGNED" &&
		!strings.HasPrefix(a, custPrefix+"test") &&
		p.IfAdminStatus == "up"
}

// CustomerPorts filters a port map down to the subscriber-facing ports.
func CustomerPorts(ports map[string]PortRecord) []PortRecord {
	var out []PortRecord
	for _, p := range ports {
		if IsCustomerPort(p) {
			out = append(out, p)
		}
	}
	return out
}

// SubscriberName extracts the subscriber tag from a port alias: the first
// space-separated word after the customer prefix.
func SubscriberName(p PortRecord) string {
	name := strings.TrimPrefix(p.IfAlias, custPrefix)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	return name
}

// IsTechnician reports whether a customer port is a technician test drop.
// Those count as up but never bill.
func IsTechnician(p PortRecord) bool {
	return strings.HasPrefix(p.IfAlias, custPrefix+"technician")
}
