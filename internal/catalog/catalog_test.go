package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	c := Builtin()
	assert.Equal(t, SourceBuiltin, c.Source())
	assert.Equal(t, []string{"general", "pizza"}, c.Keys())
	assert.Equal(t, 6, c.ProductCount())

	pizza, ok := c.Category("pizza")
	require.True(t, ok)
	assert.Equal(t, "Pizza", pizza.Name)
	assert.Equal(t, "PB16", pizza.Products[0].SKU)
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, c.Source())
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, c.Source())
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"categories": {
			"cafe": {"name": "Cafe", "products": [
				{"sku": "HC12", "name": "Paper Hot Cup 12oz", "description": "Hot drinks"},
				{"sku": "LID12", "name": "Hot Cup Lid Dome", "description": "Fits 12oz"}
			]}
		}
	}`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, c.Source())
	assert.Equal(t, []string{"cafe"}, c.Keys())
	assert.Equal(t, 2, c.ProductCount())
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  bar:
    name: Bar
    products:
      - sku: BNW
        name: Beverage Napkin White
        description: Cocktail napkin
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	bar, ok := c.Category("bar")
	require.True(t, ok)
	assert.Equal(t, "Beverage Napkin White", bar.Products[0].Name)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories": [`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_NoCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories": {}}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no categories")
}

func TestLookup(t *testing.T) {
	c := Builtin()

	p, ok := c.Lookup("ps100")
	require.True(t, ok)
	assert.Equal(t, "Pizza Saver", p.Name)

	p, ok = c.Lookup("utensil kit")
	require.True(t, ok)
	assert.Equal(t, "UTKIT", p.SKU)

	_, ok = c.Lookup("Chopsticks")
	assert.False(t, ok)
}
