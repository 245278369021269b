package salesforce

import (
	"strings"

	"github.com/rotisserie/eris"
)

// leadObject is the SObject name of a prospect record.
const leadObject = "Lead"

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// Lead represents a Salesforce Lead record.
type Lead struct {
	ID          string `json:"Id,omitempty" salesforce:"Id"`
	Company     string `json:"Company" salesforce:"Company"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Phone       string `json:"Phone,omitempty" salesforce:"Phone"`
	Email       string `json:"Email,omitempty" salesforce:"Email"`
	Website     string `json:"Website,omitempty" salesforce:"Website"`
	Street      string `json:"Street,omitempty" salesforce:"Street"`
	Status      string `json:"Status,omitempty" salesforce:"Status"`
	LeadSource  string `json:"LeadSource,omitempty" salesforce:"LeadSource"`
	Description string `json:"Description,omitempty" salesforce:"Description"`
}

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{"Id", "Company", "LastName", "Phone", "Email", "Website", "Street", "Status", "LeadSource", "Description"}

// LeadUpdate holds the Lead fields a status sync may change. Empty fields
// are left untouched.
type LeadUpdate struct {
	Status      string
	Description string
}

// InsertResult is the outcome of one Lead in a bulk insert, in input order.
type InsertResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// record builds the insert payload for l. Salesforce requires Company and
// LastName; a missing LastName is filled with the company name.
func (l Lead) record() (map[string]any, error) {
	if strings.TrimSpace(l.Company) == "" {
		return nil, eris.New("sf: lead Company is required")
	}
	last := l.LastName
	if last == "" {
		last = l.Company
	}
	r := map[string]any{"Company": l.Company, "LastName": last}
	for k, v := range map[string]string{
		"Phone":       l.Phone,
		"Email":       l.Email,
		"Website":     l.Website,
		"Street":      l.Street,
		"Status":      l.Status,
		"LeadSource":  l.LeadSource,
		"Description": l.Description,
	} {
		if v != "" {
			r[k] = v
		}
	}
	return r, nil
}

func (u LeadUpdate) fields() map[string]any {
	f := make(map[string]any, 2)
	if u.Status != "" {
		f["Status"] = u.Status
	}
	if u.Description != "" {
		f["Description"] = u.Description
	}
	return f
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
