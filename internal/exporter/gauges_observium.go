package exporter

import (
	"github.com/zgpcy/status-exporter/internal/modelgauge"
	"github.com/zgpcy/status-exporter/internal/observium"
)

// buildObserviumGauges creates the switch and port gauges.
func (e *Exporter) buildObserviumGauges() []modelgauge.Synchronizer {
	devices := model(e, e.obsDomain, e.devices, nil)
	ports := model(e, e.obsDomain, e.ports, nil)

	portSchema := modelgauge.NewSchema("id", modelgauge.Identity("id", "device_id", "ifAlias"))
	portAttrs := func(p observium.PortRecord) modelgauge.Attrs {
		return modelgauge.Attrs{"id": p.ID, "device_id": p.DeviceID, "ifAlias": p.IfAlias}
	}

	return []modelgauge.Synchronizer{
		modelgauge.New(modelgauge.Def[string, observium.DeviceRecord]{
			Name:   "observium_device_info",
			Help:   "One series per monitored access device, always 1",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity("id", "sysName", "owner")),
			Model:  devices,
			Project: func(d observium.DeviceRecord) modelgauge.Attrs {
				return modelgauge.Attrs{"id": d.ID, "sysName": d.SysName, "owner": d.Owner()}
			},
			Select: func(observium.DeviceRecord) any { return 1 },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, observium.PortRecord]{
			Name:    "observium_port_admin_up",
			Help:    "Whether the port is administratively up",
			Schema:  portSchema,
			Model:   ports,
			Project: portAttrs,
			Select:  func(p observium.PortRecord) any { return p.IfAdminStatus == "up" },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, observium.PortRecord]{
			Name:    "observium_port_speed_bps",
			Help:    "Negotiated port speed in bits per second",
			Schema:  portSchema,
			Model:   ports,
			Project: portAttrs,
			Select: func(p observium.PortRecord) any {
				if p.IfSpeed == "" {
					return 0
				}
				return p.IfSpeed
			},
		}, e.log),
	}
}
