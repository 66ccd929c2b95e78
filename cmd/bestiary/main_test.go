package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/collection"
	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/observability"
	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

func TestRunCost(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runCost(pricing.DefaultTable(), []string{pricing.ModelSonnet, "1000000", "1000000"}, false, &buf))
	assert.Equal(t, "claude-sonnet-4-20250514: 1000000 input + 1000000 output tokens = $18.000000\n", buf.String())

	buf.Reset()
	require.NoError(t, runCost(pricing.DefaultTable(), []string{"mystery", "1000000", "0"}, false, &buf))
	assert.Contains(t, buf.String(), "unknown, billed as claude-sonnet-4-20250514")
	assert.Contains(t, buf.String(), "$3.000000")

	buf.Reset()
	require.NoError(t, runCost(pricing.DefaultTable(), []string{pricing.ModelHaiku, "0", "1000000"}, true, &buf))
	var u pricing.Usage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &u))
	assert.Equal(t, 4.0, u.CostUSD)
	assert.Equal(t, 1000000, u.TotalTokens)

	assert.Error(t, runCost(pricing.DefaultTable(), []string{"m", "x", "1"}, false, &buf))
	assert.Error(t, runCost(pricing.DefaultTable(), []string{"m", "1", "y"}, false, &buf))
}

func TestRunInterpret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte("```json\n{\"name\":\"Vorlax\",\"svg_portrait\":\"<img>\"}\n```"), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInterpret(path, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "\"name\": \"Vorlax\"")
	assert.Contains(t, stdout.String(), "\"svg_portrait\": null")
	assert.Contains(t, stderr.String(), "svg_portrait")

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("pas du json"), 0o644))
	err := runInterpret(bad, &stdout, &stderr)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), parseErrorPrefix+"JSON parse error: "))

	assert.Error(t, runInterpret(filepath.Join(dir, "missing.txt"), &stdout, &stderr))
}

func TestWriteExports(t *testing.T) {
	coll := collection.New()
	for _, raw := range []string{`{"name":"Ombre Rampante"}`, `{"name":"Ver Cendré"}`} {
		c, err := creature.Interpret(raw)
		require.NoError(t, err)
		_, err = coll.Add(c)
		require.NoError(t, err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	var audit bytes.Buffer
	require.NoError(t, writeExports(dir, coll, observability.NewAuditWriter(&audit, "test")))

	for _, name := range []string{"creature-ombre-rampante.json", "creature-ver-cendré.json", collection.CollectionFilename} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	data, err := os.ReadFile(filepath.Join(dir, collection.CollectionFilename))
	require.NoError(t, err)
	back, err := collection.ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "Ombre Rampante", back[0].Name())

	assert.Equal(t, 3, strings.Count(audit.String(), "\n"))
}

func TestPrintCatalogAndModels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, bestiary.DefaultSettings(), false))
	assert.Contains(t, buf.String(), "brumesombre")
	assert.Contains(t, buf.String(), "Inoffensif")

	buf.Reset()
	require.NoError(t, printCatalog(&buf, bestiary.DefaultSettings(), true))
	var cat bestiary.Catalog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &cat))
	assert.Len(t, cat.DangerLabels, 5)

	buf.Reset()
	printModels(&buf, pricing.DefaultTable())
	assert.Contains(t, buf.String(), "* claude-sonnet-4-20250514")
	assert.Contains(t, buf.String(), pricing.ModelHaiku)
}

func TestSettingsFlagsResolve(t *testing.T) {
	f := settingsFlags{}
	f.DangerLevel = 5
	f.Element = "fire"

	s := f.resolve(bestiary.DefaultSettings())
	assert.Equal(t, 5, s.DangerLevel)
	assert.Equal(t, "fire", s.Element)
	assert.Equal(t, bestiary.DefaultSettings().Habitat, s.Habitat)
}
