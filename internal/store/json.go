package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/model"
)

const (
	leadsFile       = "leads.json"
	correctionsFile = "corrections.json"
)

// JSONStore keeps leads and corrections in memory and flushes the whole
// collection to disk after every mutation.
type JSONStore struct {
	dir string

	mu          sync.RWMutex
	leads       []model.Lead
	corrections model.CorrectionSet
}

// NewJSON creates a file-backed store rooted at dir. Call Migrate to load.
func NewJSON(dir string) *JSONStore {
	return &JSONStore{dir: dir, corrections: model.NewCorrectionSet()}
}

// Migrate creates the data directory and loads any existing files.
func (s *JSONStore) Migrate(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrap(err, "json: create data dir")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var leads []model.Lead
	if err := readJSON(filepath.Join(s.dir, leadsFile), &leads); err != nil {
		return err
	}
	s.leads = leads

	set := model.NewCorrectionSet()
	if err := readJSON(filepath.Join(s.dir, correctionsFile), &set); err != nil {
		return err
	}
	set.Normalize()
	s.corrections = set
	return nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) ListLeads(_ context.Context, filter LeadFilter) ([]model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if filter.Matches(l) {
			out = append(out, l.Clone())
		}
	}
	return out, nil
}

func (s *JSONStore) GetLead(_ context.Context, id string) (*model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return nil, notFound(id)
	}
	l := s.leads[i].Clone()
	return &l, nil
}

func (s *JSONStore) InsertLeads(_ context.Context, leads []model.Lead) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := len(s.leads)
	for _, l := range leads {
		if s.index(l.ID) >= 0 {
			continue
		}
		s.leads = append(s.leads, l.Clone())
	}
	added := len(s.leads) - prev
	if added == 0 {
		return 0, nil
	}
	if err := s.flushLeads(); err != nil {
		s.leads = s.leads[:prev]
		return 0, err
	}
	return added, nil
}

func (s *JSONStore) UpsertLead(_ context.Context, lead model.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(lead.ID); i >= 0 {
		prev := s.leads[i]
		s.leads[i] = lead.Clone()
		if err := s.flushLeads(); err != nil {
			s.leads[i] = prev
			return err
		}
		return nil
	}

	s.leads = append(s.leads, lead.Clone())
	if err := s.flushLeads(); err != nil {
		s.leads = s.leads[:len(s.leads)-1]
		return err
	}
	return nil
}

func (s *JSONStore) DeleteLead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return notFound(id)
	}
	prev := s.leads
	s.leads = slices.Delete(slices.Clone(s.leads), i, i+1)
	if err := s.flushLeads(); err != nil {
		s.leads = prev
		return err
	}
	return nil
}

func (s *JSONStore) DeleteAllLeads(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.leads)
	prev := s.leads
	s.leads = nil
	if err := s.flushLeads(); err != nil {
		s.leads = prev
		return 0, err
	}
	return n, nil
}

func (s *JSONStore) LoadCorrections(_ context.Context) (model.CorrectionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corrections.Clone(), nil
}

func (s *JSONStore) SaveCorrections(_ context.Context, set model.CorrectionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set.Normalize()
	if err := writeJSON(filepath.Join(s.dir, correctionsFile), set); err != nil {
		return err
	}
	s.corrections = set.Clone()
	return nil
}

func (s *JSONStore) index(id string) int {
	return slices.IndexFunc(s.leads, func(l model.Lead) bool { return l.ID == id })
}

func (s *JSONStore) flushLeads() error {
	leads := s.leads
	if leads == nil {
		leads = []model.Lead{}
	}
	return writeJSON(filepath.Join(s.dir, leadsFile), leads)
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "json: read %s", filepath.Base(path))
	}
	if len(raw) == 0 {
		return nil
	}
	return eris.Wrapf(json.Unmarshal(raw, v), "json: parse %s", filepath.Base(path))
}

// writeJSON replaces path atomically: the data is written to a temp file,
// synced, then renamed over the target.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "json: marshal %s", filepath.Base(path))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "json: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "json: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "json: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "json: close temp file")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "json: replace %s", filepath.Base(path))
}
