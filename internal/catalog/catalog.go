// Package catalog loads the product catalog the vision prompt enumerates.
package catalog

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/suplook/internal/model"
)

// Source records where the loaded catalog came from.
type Source string

const (
	SourceFile    Source = "file"
	SourceBuiltin Source = "builtin"
)

// Catalog is a read-only product catalog.
type Catalog struct {
	data   model.Catalog
	source Source
	keys   []string
}

// Builtin returns the small catalog used when no catalog file is present.
func Builtin() *Catalog {
	return newCatalog(model.Catalog{
		Categories: map[string]model.CatalogCategory{
			"pizza": {
				Name: "Pizza",
				Products: []model.CatalogProduct{
					{SKU: "PB16", Name: `Pizza Box 16"`, Description: "Large pizza box"},
					{SKU: "PB12", Name: `Pizza Box 12"`, Description: "Small pizza box"},
					{SKU: "PS100", Name: "Pizza Saver", Description: "Prevents box crush"},
				},
			},
			"general": {
				Name: "General",
				Products: []model.CatalogProduct{
					{SKU: "FOAM9", Name: "Foam Container 9x9", Description: "Takeout container"},
					{SKU: "UTKIT", Name: "Utensil Kit", Description: "Fork, knife, napkin"},
					{SKU: "NAP2PLY", Name: "Napkin 2-Ply", Description: "Dinner napkin"},
				},
			},
		},
	}, SourceBuiltin)
}

// Load reads a JSON or YAML catalog from path. A missing file yields the
// built-in catalog; a present but malformed file is an error.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("catalog: file not found, using built-in catalog", zap.String("path", path))
		return Builtin(), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var data model.Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}
	if len(data.Categories) == 0 {
		return nil, eris.Errorf("catalog: %s has no categories", path)
	}

	c := newCatalog(data, SourceFile)
	zap.L().Info("catalog: loaded",
		zap.String("path", path),
		zap.Int("categories", len(c.keys)),
		zap.Int("products", c.ProductCount()),
	)
	return c, nil
}

func newCatalog(data model.Catalog, source Source) *Catalog {
	keys := make([]string, 0, len(data.Categories))
	for k := range data.Categories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &Catalog{data: data, source: source, keys: keys}
}

// Source reports whether the catalog came from a file or the built-in set.
func (c *Catalog) Source() Source { return c.source }

// Keys returns category keys in a stable order.
func (c *Catalog) Keys() []string { return slices.Clone(c.keys) }

// Category returns one category by key.
func (c *Catalog) Category(key string) (model.CatalogCategory, bool) {
	cat, ok := c.data.Categories[key]
	return cat, ok
}

// Data returns the raw catalog document.
func (c *Catalog) Data() model.Catalog { return c.data }

// ProductCount is the number of products across all categories.
func (c *Catalog) ProductCount() int {
	n := 0
	for _, cat := range c.data.Categories {
		n += len(cat.Products)
	}
	return n
}

// Lookup finds a product by SKU or exact name, case-insensitively.
func (c *Catalog) Lookup(skuOrName string) (model.CatalogProduct, bool) {
	for _, k := range c.keys {
		for _, p := range c.data.Categories[k].Products {
			if strings.EqualFold(p.SKU, skuOrName) || strings.EqualFold(p.Name, skuOrName) {
				return p, true
			}
		}
	}
	return model.CatalogProduct{}, false
}
