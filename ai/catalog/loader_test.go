package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	content := `[
		{"id": "p-001", "kind": "product", "name": "爱妃苹果", "category": "水果", "keywords": ["苹果"], "price": 60, "unit": "斤"},
		{"id": "pol-001", "kind": "policy_section", "name": "退货政策", "section": "returns", "description": "七天无理由退货。"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := LoadJSON(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, KindProduct, records[0].Kind)
	assert.Equal(t, 60.0, records[0].Price)
	assert.Equal(t, KindPolicy, records[1].Kind)
	assert.Equal(t, "returns", records[1].Section)
}

func TestLoadJSON_InvalidRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "x", "kind": "mystery", "name": "n"}]`), 0o644))

	_, err := LoadJSON(path)
	assert.Error(t, err)
}

func TestLoadJSON_MissingFile(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	content := "id,name,category,keywords,description,specification,price,unit\n" +
		"p-001,爱妃苹果,水果,苹果;进口,新西兰进口,一级果,60,斤\n" +
		"p-002,红心火龙果,水果,火龙果,,,15,斤\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "爱妃苹果", records[0].Name)
	assert.Equal(t, []string{"苹果", "进口"}, records[0].Keywords)
	assert.Equal(t, 60.0, records[0].Price)
	assert.Equal(t, KindProduct, records[1].Kind)
	assert.Empty(t, records[1].Description)
}

func TestLoadCSV_BadPrice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	content := "id,name,category,price\np-001,苹果,水果,abc\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadCSV(path)
	assert.Error(t, err)
}
