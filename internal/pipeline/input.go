package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/model"
)

// csvRestaurant is one row of a stub CSV. Types are separated by ";" or "|".
type csvRestaurant struct {
	ID          string  `csv:"id,omitempty"`
	Name        string  `csv:"name"`
	Address     string  `csv:"address,omitempty"`
	City        string  `csv:"city,omitempty"`
	Phone       string  `csv:"phone,omitempty"`
	Email       string  `csv:"email,omitempty"`
	Website     string  `csv:"website,omitempty"`
	Instagram   string  `csv:"instagram,omitempty"`
	PlaceID     string  `csv:"place_id,omitempty"`
	DirectoryID string  `csv:"directory_id,omitempty"`
	Types       string  `csv:"types,omitempty"`
	Rating      float64 `csv:"rating,omitempty"`
	ReviewCount int     `csv:"review_count,omitempty"`
}

func (c csvRestaurant) restaurant() model.Restaurant {
	r := model.Restaurant{
		ID:          strings.TrimSpace(c.ID),
		Name:        strings.TrimSpace(c.Name),
		Address:     strings.TrimSpace(c.Address),
		City:        strings.TrimSpace(c.City),
		Phone:       strings.TrimSpace(c.Phone),
		Email:       strings.TrimSpace(c.Email),
		Website:     strings.TrimSpace(c.Website),
		Instagram:   strings.TrimPrefix(strings.TrimSpace(c.Instagram), "@"),
		PlaceID:     strings.TrimSpace(c.PlaceID),
		DirectoryID: strings.TrimSpace(c.DirectoryID),
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
	}
	for _, t := range strings.FieldsFunc(c.Types, func(r rune) bool { return r == ';' || r == '|' }) {
		if t = strings.TrimSpace(t); t != "" {
			r.Types = append(r.Types, t)
		}
	}
	return r
}

// LoadRestaurants reads stubs from a .csv file with a header row, or from a
// .json file holding an array or {"restaurants": [...]}. Rows without a name
// are skipped.
func LoadRestaurants(path string) ([]model.Restaurant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}

	var out []model.Restaurant
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		out, err = parseCSV(raw)
	case ".json":
		out, err = parseJSON(raw)
	default:
		return nil, eris.Errorf("pipeline: unsupported input format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse %s", path)
	}

	named := out[:0]
	for _, r := range out {
		if strings.TrimSpace(r.Name) != "" {
			named = append(named, r)
		}
	}
	return named, nil
}

func parseCSV(raw []byte) ([]model.Restaurant, error) {
	var rows []csvRestaurant
	if err := csvutil.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Restaurant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.restaurant())
	}
	return out, nil
}

func parseJSON(raw []byte) ([]model.Restaurant, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var out []model.Restaurant
		err := json.Unmarshal(raw, &out)
		return out, err
	}
	var wrapped struct {
		Restaurants []model.Restaurant `json:"restaurants"`
	}
	err := json.Unmarshal(raw, &wrapped)
	return wrapped.Restaurants, err
}
