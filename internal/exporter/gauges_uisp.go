package exporter

import (
	"github.com/zgpcy/status-exporter/internal/modelgauge"
	"github.com/zgpcy/status-exporter/internal/uisp"
)

// Label helpers. A typed nil pointer does not compare equal to an untyped
// nil inside an attribute map, so optional fields are unwrapped here.

func intLabel(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatLabel(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// tsOrZero renders null and empty timestamps as 0, meaning "never".
func tsOrZero(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

// buildUISPGauges creates the CRM gauges: seven keyed by client, one by
// contact, five by service.
func (e *Exporter) buildUISPGauges() []modelgauge.Synchronizer {
	clients := model(e, e.uispDomain, e.clients, e.notifier)
	services := model(e, e.uispDomain, e.services, e.notifier)
	contacts := model(e, e.uispDomain, e.contacts, e.notifier)

	clientIDSchema := modelgauge.NewSchema("id", modelgauge.Identity("id", "nlid"))
	clientIDAttrs := func(c uisp.ClientRecord) modelgauge.Attrs {
		return modelgauge.Attrs{"id": c.ID, "nlid": c.UserIdent}
	}
	serviceIDSchema := modelgauge.NewSchema("id", modelgauge.Identity("id", "clientId", "nlid"))
	serviceIDAttrs := func(s uisp.ServiceRecord) modelgauge.Attrs {
		return modelgauge.Attrs{"id": s.ID, "clientId": s.ClientID, "nlid": s.UserIdent}
	}

	return []modelgauge.Synchronizer{
		modelgauge.New(modelgauge.Def[int, uisp.ClientRecord]{
			Name: "uisp_client_state",
			Help: "Client lifecycle state: 0 active, 1 archived, 2 lead",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity(
				"id", "isLead", "clientType", "companyName", "street1", "street2",
				"city", "countryId", "stateId", "zipCode", "organizationId",
				"companyContactFirstName", "companyContactLastName", "isActive",
				"firstName", "lastName", "username", "isArchived", "nlid")),
			Model: clients,
			Project: func(c uisp.ClientRecord) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":                      c.ID,
					"isLead":                  c.IsLead,
					"clientType":              c.ClientType,
					"companyName":             c.CompanyName,
					"street1":                 c.Street1,
					"street2":                 c.Street2,
					"city":                    c.City,
					"countryId":               intLabel(c.CountryID),
					"stateId":                 intLabel(c.StateID),
					"zipCode":                 c.ZipCode,
					"organizationId":          c.OrganizationID,
					"companyContactFirstName": c.CompanyContactFirstName,
					"companyContactLastName":  c.CompanyContactLastName,
					"isActive":                c.IsActive,
					"firstName":               c.FirstName,
					"lastName":                c.LastName,
					"username":                c.Username,
					"isArchived":              c.IsArchived,
					"nlid":                    c.UserIdent,
				}
			},
			Select: func(c uisp.ClientRecord) any { return uisp.ClientState(c) },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ContactRow]{
			Name:   "uisp_client_contact",
			Help:   "One series per client contact, always 1",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity("id", "clientId", "email", "phone", "name", "types", "nlid")),
			Model:  contacts,
			Project: func(c uisp.ContactRow) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":       c.ID,
					"clientId": c.ClientID,
					"email":    c.Email,
					"phone":    c.Phone,
					"name":     c.Name,
					"types":    c.Types,
					"nlid":     c.UserIdent,
				}
			},
			Select: func(uisp.ContactRow) any { return 1 },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ClientRecord]{
			Name:   "uisp_client_balance",
			Help:   "Client account balance; positive means credit",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity("id", "currencyCode", "nlid")),
			Model:  clients,
			Project: func(c uisp.ClientRecord) modelgauge.Attrs {
				return modelgauge.Attrs{"id": c.ID, "currencyCode": c.CurrencyCode, "nlid": c.UserIdent}
			},
			Select: func(c uisp.ClientRecord) any { return c.AccountBalance },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ClientRecord]{
			Name:    "uisp_client_pastdue",
			Help:    "Whether the client has an overdue invoice",
			Schema:  clientIDSchema,
			Model:   clients,
			Project: clientIDAttrs,
			Select:  func(c uisp.ClientRecord) any { return c.HasOverdueInvoice },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ClientRecord]{
			Name:    "uisp_client_autopay",
			Help:    "Whether the client has an autopay credit card on file",
			Schema:  clientIDSchema,
			Model:   clients,
			Project: clientIDAttrs,
			Select:  func(c uisp.ClientRecord) any { return c.HasAutopayCreditCard },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ClientRecord]{
			Name:    "uisp_client_invited_ts",
			Help:    "Unix timestamp of the client portal invitation email, 0 when never invited",
			Schema:  clientIDSchema,
			Model:   clients,
			Project: clientIDAttrs,
			Select:  func(c uisp.ClientRecord) any { return tsOrZero(c.InvitationEmailSentDate) },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ClientRecord]{
			Name:    "uisp_client_registered_ts",
			Help:    "Unix timestamp of client registration, 0 when unknown",
			Schema:  clientIDSchema,
			Model:   clients,
			Project: clientIDAttrs,
			Select:  func(c uisp.ClientRecord) any { return tsOrZero(c.RegistrationDate) },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ServiceRecord]{
			Name: "uisp_service_state",
			Help: "Service status: 0 prepared, 1 active, 2 ended, 3 suspended, 4 prepared blocked, 5 obsolete, 6 deferred, 7 quoted",
			Schema: modelgauge.NewSchema("id", modelgauge.Identity(
				"id", "clientId", "prepaid", "addressGpsLat", "addressGpsLon",
				"servicePlanId", "hasIndividualPrice", "downloadSpeed",
				"uploadSpeed", "nlid")),
			Model: services,
			Project: func(s uisp.ServiceRecord) modelgauge.Attrs {
				return modelgauge.Attrs{
					"id":                 s.ID,
					"clientId":           s.ClientID,
					"prepaid":            s.Prepaid,
					"addressGpsLat":      floatLabel(s.AddressGpsLat),
					"addressGpsLon":      floatLabel(s.AddressGpsLon),
					"servicePlanId":      s.ServicePlanID,
					"hasIndividualPrice": s.HasIndividualPrice,
					"downloadSpeed":      s.DownloadSpeed,
					"uploadSpeed":        s.UploadSpeed,
					"nlid":               s.UserIdent,
				}
			},
			Select: func(s uisp.ServiceRecord) any { return s.Status },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ServiceRecord]{
			Name:    "uisp_service_active_from_ts",
			Help:    "Unix timestamp the service becomes active, 0 when not scheduled",
			Schema:  serviceIDSchema,
			Model:   services,
			Project: serviceIDAttrs,
			Select:  func(s uisp.ServiceRecord) any { return tsOrZero(s.ActiveFrom) },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ServiceRecord]{
			Name:    "uisp_service_active_to_ts",
			Help:    "Unix timestamp the service ends, 0 when ongoing",
			Schema:  serviceIDSchema,
			Model:   services,
			Project: serviceIDAttrs,
			Select:  func(s uisp.ServiceRecord) any { return tsOrZero(s.ActiveTo) },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ServiceRecord]{
			Name:    "uisp_service_contract_end_ts",
			Help:    "Unix timestamp the contract ends, 0 when there is no contract",
			Schema:  serviceIDSchema,
			Model:   services,
			Project: serviceIDAttrs,
			Select:  func(s uisp.ServiceRecord) any { return tsOrZero(s.ContractEndDate) },
		}, e.log),

		modelgauge.New(modelgauge.Def[int, uisp.ServiceRecord]{
			Name:    "uisp_service_last_invoiced_ts",
			Help:    "Unix timestamp of the last invoice, 0 when never invoiced",
			Schema:  serviceIDSchema,
			Model:   services,
			Project: serviceIDAttrs,
			Select:  func(s uisp.ServiceRecord) any { return tsOrZero(s.LastInvoicedDate) },
		}, e.log),
	}
}
