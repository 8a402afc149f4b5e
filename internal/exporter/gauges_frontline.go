package exporter

import (
	"fmt"

	"github.com/zgpcy/status-exporter/internal/frontline"
	"github.com/zgpcy/status-exporter/internal/modelgauge"
)

// tsOrNeg renders null and empty timestamps as -1, meaning "unknown".
func tsOrNeg(p *string) any {
	if p == nil || *p == "" {
		return -1
	}
	return *p
}

// buildFrontlineMetaGauges creates the customer gauges.
func (e *Exporter) buildFrontlineMetaGauges() []modelgauge.Synchronizer {
	customers := model(e, e.metaDomain, e.customers, nil)

	// The customer id exports as custid and the account id as nlid, so the
	// series join with the node and CRM metrics.
	idLabels := map[string]string{"id": "custid", "accountId": "nlid"}
	idSchema := modelgauge.NewSchema("id", idLabels)
	idAttrs := func(c frontline.Customer) modelgauge.Attrs {
		return modelgauge.Attrs{"id": c.ID, "accountId": c.AccountID}
	}

	fullLabels := modelgauge.Identity("name", "locked", "acceptLanguage", "email")
	fullLabels["id"] = "custid"
	fullLabels["accountId"] = "nlid"

	return []modelgauge.Synchronizer{
		modelgauge.New(modelgauge.Def[string, frontline.Customer]{
			Name:   "frontline_customer_email_verified",
			Help:   "Whether the customer verified their account email",
			Schema: modelgauge.NewSchema("id", fullLabels),
			Model:  customers,
			Project: func(c frontline.Customer) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":             c.ID,
					"accountId":      c.AccountID,
					"name":           c.Name,
					"locked":         c.Locked,
					"acceptLanguage": c.AcceptLanguage,
					"email":          c.Email,
				}
			},
			Select: func(c frontline.Customer) any { return c.EmailVerified },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.Customer]{
			Name:    "frontline_customer_created_ts",
			Help:    "Unix timestamp of customer account creation",
			Schema:  idSchema,
			Model:   customers,
			Project: idAttrs,
			Select:  func(c frontline.Customer) any { return c.CreatedAt },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.Customer]{
			Name:    "frontline_customer_first_login_ts",
			Help:    "Unix timestamp of the customer's first app login, 0 when never logged in",
			Schema:  idSchema,
			Model:   customers,
			Project: idAttrs,
			Select:  func(c frontline.Customer) any { return tsOrZero(c.FirstKnownLoginTimestamp) },
		}, e.log),
	}
}

// buildFrontlineNodeGauges creates the node gauges. Link, parent, speed
// test and channel series are derived views over the node store, keyed by
// composite ids so one node can carry several series per family.
func (e *Exporter) buildFrontlineNodeGauges() []modelgauge.Synchronizer {
	nodes := model(e, e.nodesDomain, e.nodes, nil)
	links := func() (map[string]frontline.LinkRow, error) {
		m, err := nodes()
		if err != nil {
			return nil, err
		}
		return frontline.LinkRows(m), nil
	}
	parents := func() (map[string]frontline.ParentRow, error) {
		m, err := nodes()
		if err != nil {
			return nil, err
		}
		return frontline.ParentRows(m), nil
	}
	speeds := func() (map[string]frontline.SpeedRow, error) {
		m, err := nodes()
		if err != nil {
			return nil, err
		}
		return frontline.SpeedTestRows(m), nil
	}
	channels := func() (map[string]frontline.ChannelRow, error) {
		m, err := nodes()
		if err != nil {
			return nil, err
		}
		return frontline.ChannelRows(m, e.log), nil
	}

	nodeIDSchema := modelgauge.NewSchema("id", modelgauge.Identity("id", "nlid"))
	nodeIDAttrs := func(n frontline.NodeRecord) modelgauge.Attrs {
		return modelgauge.Attrs{"id": n.ID, "nlid": n.NLID}
	}
	speedIDSchema := modelgauge.NewSchema("id", modelgauge.Identity("id", "nlid"))
	speedIDAttrs := func(r frontline.SpeedRow) modelgauge.Attrs {
		return modelgauge.Attrs{"id": r.ID, "nlid": r.NLID}
	}

	return []modelgauge.Synchronizer{
		modelgauge.New(modelgauge.Def[string, frontline.NodeRecord]{
			Name: "frontline_node_info",
			Help: "One series per node carrying its hardware identity, always 1",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity(
				"id", "nlid", "custid", "locid", "model", "mac", "ethernet1Mac",
				"serialNumber", "shipDate", "partNumber", "firmwareVersion",
				"nickname", "backhaulType", "ip", "wanIp", "publicIp",
				"openSyncVersion")),
			Model: nodes,
			Project: func(n frontline.NodeRecord) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":              n.ID,
					"nlid":            n.NLID,
					"custid":          n.CustID,
					"locid":           n.LocID,
					"model":           n.Model,
					"mac":             n.MAC,
					"ethernet1Mac":    n.Ethernet1MAC,
					"serialNumber":    n.SerialNumber,
					"shipDate":        n.ShipDate,
					"partNumber":      n.PartNumber,
					"firmwareVersion": n.FirmwareVersion,
					"nickname":        n.Nickname,
					"backhaulType":    n.BackhaulType,
					"ip":              n.IP,
					"wanIp":           n.WanIP,
					"publicIp":        n.PublicIP,
					"openSyncVersion": n.OpenSyncVersion,
				}
			},
			Select: func(frontline.NodeRecord) any { return 1 },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.NodeRecord]{
			Name:    "frontline_node_health",
			Help:    "Node health score, -1 when not connected, -2 when connected without a score",
			Schema:  nodeIDSchema,
			Model:   nodes,
			Project: nodeIDAttrs,
			Select:  func(n frontline.NodeRecord) any { return frontline.HealthScore(n) },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.NodeRecord]{
			Name:    "frontline_node_is_bridge",
			Help:    "Whether the location runs in bridge network mode",
			Schema:  nodeIDSchema,
			Model:   nodes,
			Project: nodeIDAttrs,
			Select:  func(n frontline.NodeRecord) any { return n.NetworkMode == "bridge" },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.NodeRecord]{
			Name:    "frontline_node_connected_devices",
			Help:    "Client devices connected through the node, -1 when unknown",
			Schema:  nodeIDSchema,
			Model:   nodes,
			Project: nodeIDAttrs,
			Select: func(n frontline.NodeRecord) any {
				if n.ConnectedDeviceCount == nil {
					return -1
				}
				return *n.ConnectedDeviceCount
			},
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.NodeRecord]{
			Name:    "frontline_node_connectivity_change_ts",
			Help:    "Unix timestamp of the last connection state change, -1 when unknown",
			Schema:  nodeIDSchema,
			Model:   nodes,
			Project: nodeIDAttrs,
			Select:  func(n frontline.NodeRecord) any { return tsOrNeg(n.ConnectionStateChangeAt) },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.NodeRecord]{
			Name:    "frontline_node_boot_ts",
			Help:    "Unix timestamp of the last node boot, -1 when unknown",
			Schema:  nodeIDSchema,
			Model:   nodes,
			Project: nodeIDAttrs,
			Select:  func(n frontline.NodeRecord) any { return tsOrNeg(n.BootAt) },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.NodeRecord]{
			Name:    "frontline_node_claim_ts",
			Help:    "Unix timestamp the node was claimed into the location",
			Schema:  nodeIDSchema,
			Model:   nodes,
			Project: nodeIDAttrs,
			Select: func(n frontline.NodeRecord) any {
				if n.ClaimedAt == nil || *n.ClaimedAt == "" {
					return fmt.Errorf("node %s has no claim timestamp", n.ID)
				}
				return *n.ClaimedAt
			},
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.LinkRow]{
			Name: "frontline_node_link_speed",
			Help: "Negotiated Ethernet link speed in Mbps per node port",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity(
				"id", "nodeid", "nlid", "ifName", "duplex", "isUplink", "hasEthClient")),
			Model: links,
			Project: func(r frontline.LinkRow) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":           r.ID,
					"nodeid":       r.NodeID,
					"nlid":         r.NLID,
					"ifName":       r.IfName,
					"duplex":       r.Duplex,
					"isUplink":     r.IsUplink,
					"hasEthClient": r.HasEthClient,
				}
			},
			Select: func(r frontline.LinkRow) any { return r.LinkSpeed },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.ParentRow]{
			Name:   "frontline_node_parent_wifi_channel",
			Help:   "WiFi channel towards the node's parent, -1 for wired backhaul, -99 when unreported",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity("id", "nlid", "radio", "parentId")),
			Model:  parents,
			Project: func(r frontline.ParentRow) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":       r.ID,
					"nlid":     r.NLID,
					"radio":    r.Radio,
					"parentId": r.ParentID,
				}
			},
			Select: func(r frontline.ParentRow) any { return r.Channel },
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.SpeedRow]{
			Name:    "frontline_node_speedtest_rtt",
			Help:    "Round trip time of the last speed test in ms, -1 unless it succeeded",
			Schema:  speedIDSchema,
			Model:   speeds,
			Project: speedIDAttrs,
			Select: func(r frontline.SpeedRow) any {
				if r.Status != "succeeded" {
					return -1
				}
				return r.RTT
			},
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.SpeedRow]{
			Name:    "frontline_node_upload_mbps",
			Help:    "Upload rate of the last speed test in Mbps, -1 unless it succeeded",
			Schema:  speedIDSchema,
			Model:   speeds,
			Project: speedIDAttrs,
			Select: func(r frontline.SpeedRow) any {
				if r.Status != "succeeded" {
					return -1
				}
				return r.Upload
			},
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.SpeedRow]{
			Name:    "frontline_node_download_mbps",
			Help:    "Download rate of the last speed test in Mbps, -1 unless it succeeded",
			Schema:  speedIDSchema,
			Model:   speeds,
			Project: speedIDAttrs,
			Select: func(r frontline.SpeedRow) any {
				if r.Status != "succeeded" {
					return -1
				}
				return r.Download
			},
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.SpeedRow]{
			Name: "frontline_node_speedtest_start_ts",
			Help: "Unix timestamp the last speed test started, 0 when never run",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity(
				"id", "nlid", "trigger", "gateway", "serverIp", "serverHost", "serverId")),
			Model: speeds,
			Project: func(r frontline.SpeedRow) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":         r.ID,
					"nlid":       r.NLID,
					"trigger":    r.Trigger,
					"gateway":    r.Gateway,
					"serverIp":   r.ServerIP,
					"serverHost": r.ServerHost,
					"serverId":   r.ServerID,
				}
			},
			Select: func(r frontline.SpeedRow) any {
				if r.StartedAt == "" {
					return nil
				}
				return r.StartedAt
			},
		}, e.log),

		modelgauge.New(modelgauge.Def[string, frontline.ChannelRow]{
			Name: "frontline_node_channel",
			Help: "Operating channel per radio band, -999 for an unknown band",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity(
				"id", "nodeid", "nlid", "freqBand", "channelWidth")),
			Model: channels,
			Project: func(r frontline.ChannelRow) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":           r.ID,
					"nodeid":       r.NodeID,
					"nlid":         r.NLID,
					"freqBand":     r.FreqBand,
					"channelWidth": r.ChannelWidth,
				}
			},
			Select: func(r frontline.ChannelRow) any { return r.Channel },
		}, e.log),
	}
}
