// Package crm pushes graduated leads to Salesforce and keeps their outcome
// status in sync.
package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/lead"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/store"
	"github.com/sells-group/suplook/pkg/salesforce"
)

// LeadSource tags every record this system creates.
const LeadSource = "SupLook"

// ErrDisabled is returned by Push when Salesforce is not configured.
var ErrDisabled = errors.New("salesforce not configured")

// Leads is the lifecycle surface the pusher reads and writes through.
type Leads interface {
	List(ctx context.Context, filter store.LeadFilter) (*lead.ListResult, error)
	Get(ctx context.Context, id string) (*model.Lead, error)
	Update(ctx context.Context, id string, p lead.Patch) (*model.Lead, error)
}

// Pusher sends graduated leads to Salesforce.
type Pusher struct {
	sf    salesforce.Client
	leads Leads
}

// NewPusher creates a Pusher. A nil client disables every operation.
func NewPusher(sf salesforce.Client, leads Leads) *Pusher {
	return &Pusher{sf: sf, leads: leads}
}

// Enabled reports whether Salesforce is configured.
func (p *Pusher) Enabled() bool {
	return p != nil && p.sf != nil
}

// Queue returns graduated leads that have not been pushed yet.
func (p *Pusher) Queue(ctx context.Context) ([]model.Lead, error) {
	graduated := true
	res, err := p.leads.List(ctx, store.LeadFilter{Graduated: &graduated})
	if err != nil {
		return nil, eris.Wrap(err, "crm: list graduated leads")
	}
	var out []model.Lead
	for _, l := range res.Leads {
		if l.SalesforceID == "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// PushedLead is the result for one lead.
type PushedLead struct {
	LeadID       string `json:"lead_id"`
	SalesforceID string `json:"salesforce_id,omitempty"`
	Linked       bool   `json:"linked,omitempty"`
	Error        string `json:"error,omitempty"`
}

// PushResult summarizes one push.
type PushResult struct {
	Created int          `json:"created"`
	Linked  int          `json:"linked"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
	Leads   []PushedLead `json:"leads"`
}

// Push sends the named leads, or the whole queue when ids is empty. A lead
// whose phone already exists in Salesforce is linked to that record instead
// of creating a duplicate. Leads that are not graduated or already pushed
// are skipped.
func (p *Pusher) Push(ctx context.Context, ids []string) (*PushResult, error) {
	if !p.Enabled() {
		return nil, eris.Wrap(ErrDisabled, "crm: push")
	}

	candidates, err := p.candidates(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := &PushResult{Leads: []PushedLead{}}
	var (
		toCreate []model.Lead
		records  []salesforce.Lead
	)
	for _, l := range candidates {
		if !l.Graduated || l.SalesforceID != "" {
			res.Skipped++
			continue
		}

		var existing *salesforce.Lead
		if l.Phone != "" {
			existing, err = p.sf.FindLeadByPhone(ctx, l.Phone)
			if err != nil {
				res.fail(l.ID, err)
				continue
			}
		}
		if existing != nil {
			if err := p.link(ctx, l.ID, existing.ID); err != nil {
				res.fail(l.ID, err)
				continue
			}
			res.Linked++
			res.Leads = append(res.Leads, PushedLead{LeadID: l.ID, SalesforceID: existing.ID, Linked: true})
			continue
		}
		toCreate = append(toCreate, l)
		records = append(records, Record(l))
	}

	results, err := p.sf.InsertLeads(ctx, records)
	for i, r := range results {
		l := toCreate[i]
		if !r.Success {
			res.fail(l.ID, eris.Errorf("crm: salesforce rejected lead: %s", strings.Join(r.Errors, "; ")))
			continue
		}
		if lerr := p.link(ctx, l.ID, r.ID); lerr != nil {
			res.fail(l.ID, lerr)
			continue
		}
		res.Created++
		res.Leads = append(res.Leads, PushedLead{LeadID: l.ID, SalesforceID: r.ID})
	}
	if err != nil {
		for _, l := range toCreate[len(results):] {
			res.fail(l.ID, err)
		}
	}

	zap.L().Info("crm: push complete",
		zap.Int("created", res.Created),
		zap.Int("linked", res.Linked),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (p *Pusher) candidates(ctx context.Context, ids []string) ([]model.Lead, error) {
	if len(ids) == 0 {
		return p.Queue(ctx)
	}
	out := make([]model.Lead, 0, len(ids))
	for _, id := range ids {
		l, err := p.leads.Get(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "crm: load lead %s", id)
		}
		out = append(out, *l)
	}
	return out, nil
}

func (p *Pusher) link(ctx context.Context, leadID, sfID string) error {
	_, err := p.leads.Update(ctx, leadID, lead.Patch{SalesforceID: &sfID})
	return eris.Wrapf(err, "crm: store salesforce id for %s", leadID)
}

func (r *PushResult) fail(leadID string, err error) {
	r.Failed++
	r.Leads = append(r.Leads, PushedLead{LeadID: leadID, Error: err.Error()})
	zap.L().Warn("crm: push failed", zap.String("lead_id", leadID), zap.Error(err))
}

// SyncOutcome writes the lead's outcome to its Salesforce record. Leads that
// were never pushed or have no outcome are ignored.
func (p *Pusher) SyncOutcome(ctx context.Context, l model.Lead) error {
	if !p.Enabled() || l.SalesforceID == "" {
		return nil
	}
	status := Status(l.Outcome)
	if status == "" {
		return nil
	}
	u := salesforce.LeadUpdate{Status: status}
	if l.OutcomeNotes != "" {
		u.Description = description(l) + "\nOutcome: " + l.OutcomeNotes
	}
	return eris.Wrap(p.sf.UpdateLead(ctx, l.SalesforceID, u), "crm: sync outcome")
}

// Status maps an outcome to the standard Lead status picklist.
func Status(o model.Outcome) string {
	switch o {
	case model.OutcomeNoReply:
		return "Open - Not Contacted"
	case model.OutcomeReplied:
		return "Working - Contacted"
	case model.OutcomeSold:
		return "Closed - Converted"
	case model.OutcomeLost:
		return "Closed - Not Converted"
	}
	return ""
}

// Record builds the Salesforce Lead record for l.
func Record(l model.Lead) salesforce.Lead {
	return salesforce.Lead{
		Company:     l.Name,
		Phone:       l.Phone,
		Email:       l.Email,
		Website:     l.Website,
		Street:      l.Address,
		Status:      Status(model.OutcomeNoReply),
		LeadSource:  LeadSource,
		Description: description(l),
	}
}

func description(l model.Lead) string {
	return fmt.Sprintf("Cuisine: %s\nPhoto tier: %d\nProducts: %s",
		l.Cuisine, l.Tier, strings.Join(model.ProductNames(l.Products), ", "))
}
