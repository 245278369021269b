package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/model"
)

// ErrNotFound is returned when a lead id does not exist.
var ErrNotFound = errors.New("not found")

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Graduated *bool `json:"graduated,omitempty"`
}

// Matches reports whether l passes the filter.
func (f LeadFilter) Matches(l model.Lead) bool {
	return f.Graduated == nil || *f.Graduated == l.Graduated
}

// LeadRepository persists enriched leads keyed by id. Lists preserve
// insertion order.
type LeadRepository interface {
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	// InsertLeads appends leads whose ids are not yet stored and returns
	// how many were added.
	InsertLeads(ctx context.Context, leads []model.Lead) (int, error)
	// UpsertLead overwrites a lead in place or appends it.
	UpsertLead(ctx context.Context, lead model.Lead) error
	DeleteLead(ctx context.Context, id string) error
	DeleteAllLeads(ctx context.Context) (int, error)
}

// CorrectionRepository persists the correction indices as one document.
type CorrectionRepository interface {
	LoadCorrections(ctx context.Context) (model.CorrectionSet, error)
	SaveCorrections(ctx context.Context, set model.CorrectionSet) error
}

// Store defines the persistence interface for leads and corrections.
type Store interface {
	LeadRepository
	CorrectionRepository

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func notFound(id string) error {
	return eris.Wrapf(ErrNotFound, "lead %s", id)
}
