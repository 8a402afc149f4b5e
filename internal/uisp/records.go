package uisp

import (
	"fmt"
	"sort"
	"strings"
)

// Service status values from the CRM service object.
const (
	ServiceStatusPrepared = iota
	ServiceStatusActive
	ServiceStatusEnded
	ServiceStatusSuspended
	ServiceStatusPreparedBlocked
	ServiceStatusObsolete
	ServiceStatusDeferred
	ServiceStatusQuoted
	ServiceStatusInactive
)

// Client state values exported by uisp_client_state.
const (
	ClientStateActive = iota
	ClientStateArchived
	ClientStateLead
)

// Organization is one CRM organization. The exporter fetches the list once
// at startup and reuses it for every refresh and for the weekly summary.
type Organization struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ContactType is one entry of a contact's types array.
type ContactType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Contact is one contact sub-document of a client record.
type Contact struct {
	ID       int           `json:"id"`
	ClientID int           `json:"clientId"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone"`
	Name     string        `json:"name"`
	Types    []ContactType `json:"types"`
}

// ContactRow is a contact flattened for export: type names joined into a
// single label value and the owning client's userIdent carried along.
type ContactRow struct {
	ID        int
	ClientID  int
	Email     string
	Phone     string
	Name      string
	Types     string
	UserIdent string
}

// ClientRecord is a CRM client. Timestamp fields are pointers because the
// CRM sends null for "never"; text fields decode null as the empty string.
type ClientRecord struct {
	ID                      int       `json:"id"`
	UserIdent               string    `json:"userIdent"`
	IsLead                  bool      `json:"isLead"`
	ClientType              int       `json:"clientType"`
	CompanyName             string    `json:"companyName"`
	CompanyContactFirstName string    `json:"companyContactFirstName"`
	CompanyContactLastName  string    `json:"companyContactLastName"`
	FirstName               string    `json:"firstName"`
	LastName                string    `json:"lastName"`
	Street1                 string    `json:"street1"`
	Street2                 string    `json:"street2"`
	City                    string    `json:"city"`
	CountryID               *int      `json:"countryId"`
	StateID                 *int      `json:"stateId"`
	ZipCode                 string    `json:"zipCode"`
	OrganizationID          int       `json:"organizationId"`
	IsActive                bool      `json:"isActive"`
	IsArchived              bool      `json:"isArchived"`
	Username                string    `json:"username"`
	AccountBalance          float64   `json:"accountBalance"`
	CurrencyCode            string    `json:"currencyCode"`
	HasOverdueInvoice       bool      `json:"hasOverdueInvoice"`
	HasAutopayCreditCard    bool      `json:"hasAutopayCreditCard"`
	HasSuspendedService     bool      `json:"hasSuspendedService"`
	InvitationEmailSentDate *string   `json:"invitationEmailSentDate"`
	RegistrationDate        *string   `json:"registrationDate"`
	Contacts                []Contact `json:"contacts"`
}

// ServiceRecord is a CRM service. UserIdent, DownloadSpeed and UploadSpeed
// are rewritten by enrichment: userIdent copies from the owning client
// ("-1" when the client is unknown) and the speeds copy from the service
// plan (-1 when the plan does not define them).
type ServiceRecord struct {
	ID                 int      `json:"id"`
	ClientID           int      `json:"clientId"`
	Status             int      `json:"status"`
	Name               string   `json:"name"`
	Price              float64  `json:"price"`
	ServicePlanID      int      `json:"servicePlanId"`
	ServicePlanType    string   `json:"servicePlanType"`
	Prepaid            bool     `json:"prepaid"`
	HasIndividualPrice bool     `json:"hasIndividualPrice"`
	AddressGpsLat      *float64 `json:"addressGpsLat"`
	AddressGpsLon      *float64 `json:"addressGpsLon"`
	ActiveFrom         *string  `json:"activeFrom"`
	ActiveTo           *string  `json:"activeTo"`
	ContractEndDate    *string  `json:"contractEndDate"`
	LastInvoicedDate   *string  `json:"lastInvoicedDate"`
	DownloadSpeed      float64  `json:"downloadSpeed"`
	UploadSpeed        float64  `json:"uploadSpeed"`

	UserIdent string `json:"-"`
}

// ServicePlanRecord is a CRM service plan.
type ServicePlanRecord struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	ServicePlanType string   `json:"servicePlanType"`
	DownloadSpeed   *float64 `json:"downloadSpeed"`
	UploadSpeed     *float64 `json:"uploadSpeed"`
}

// ClientState maps a client record to the uisp_client_state value.
// Archived wins over lead when a record claims both.
func ClientState(c ClientRecord) int {
	switch {
	case c.IsArchived:
		return ClientStateArchived
	case c.IsLead:
		return ClientStateLead
	default:
		return ClientStateActive
	}
}

// NameOf renders a human-readable client name for reports and email bodies.
func NameOf(c ClientRecord) string {
	switch {
	case c.FirstName != "":
		return c.FirstName + " " + c.LastName
	case c.CompanyContactFirstName != "":
		return fmt.Sprintf("COMPANY:%s, %s %s", c.CompanyName, c.CompanyContactFirstName, c.CompanyContactLastName)
	case c.CompanyName != "":
		return "COMPANY:" + c.CompanyName
	default:
		return fmt.Sprintf("client %d", c.ID)
	}
}

// CurrencyString formats a dollar amount the way the reports expect.
func CurrencyString(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// PrintableClient renders one report line for a client: username, name,
// balance, and the flag words for autopay, overdue, inactive, lead,
// suspended and never-invited states.
func PrintableClient(c ClientRecord) string {
	var b strings.Builder
	b.WriteString(c.Username)
	b.WriteByte(' ')
	b.WriteString(NameOf(c))
	if c.AccountBalance < 0 {
		b.WriteString(" owes ")
		b.WriteString(CurrencyString(-c.AccountBalance))
	} else if c.AccountBalance > 0 {
		b.WriteString(" credit ")
		b.WriteString(CurrencyString(c.AccountBalance))
	}
	if !c.HasAutopayCreditCard {
		b.WriteString(" NO-AUTOPAY")
	}
	if c.HasOverdueInvoice {
		b.WriteString(" OVERDUE")
	}
	if !c.IsActive {
		b.WriteString(" INACTIVE")
	}
	if c.IsLead {
		b.WriteString(" LEAD")
	}
	if c.HasSuspendedService {
		b.WriteString(" SUSPENDED")
	}
	if c.InvitationEmailSentDate == nil || *c.InvitationEmailSentDate == "" {
		b.WriteString(" no-invite")
	}
	return b.String()
}

// ContactRows flattens every contact of every client into exportable rows
// keyed by contact id. Type names are sorted and comma-joined so the label
// value is stable across refreshes.
func ContactRows(clients map[int]ClientRecord) map[int]ContactRow {
	rows := make(map[int]ContactRow)
	for _, c := range clients {
		for _, contact := range c.Contacts {
			names := make([]string, 0, len(contact.Types))
			for _, t := range contact.Types {
				names = append(names, t.Name)
			}
			sort.Strings(names)
			rows[contact.ID] = ContactRow{
				ID:        contact.ID,
				ClientID:  contact.ClientID,
				Email:     contact.Email,
				Phone:     contact.Phone,
				Name:      contact.Name,
				Types:     strings.Join(names, ","),
				UserIdent: c.UserIdent,
			}
		}
	}
	return rows
}
