package tui

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/collection"
	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/generator"
	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

type fakeGenerator struct {
	res   *generator.Result
	err   error
	calls int
}

func (f *fakeGenerator) GenerateFromSettings(_ context.Context, _ bestiary.Settings) (*generator.Result, error) {
	f.calls++
	return f.res, f.err
}

func mustCreature(t *testing.T, raw string) *creature.Creature {
	t.Helper()
	c, err := creature.Interpret(raw)
	require.NoError(t, err)
	return c
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func newTestModel(t *testing.T, gen Generator) Model {
	t.Helper()
	m := NewModel(context.Background(), Options{
		Generator: gen,
		Settings:  bestiary.DefaultSettings(),
		ExportDir: t.TempDir(),
	})
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func TestGenerateShowsCreature(t *testing.T) {
	c := mustCreature(t, `{"name":"Vorlax","title":"Le Dévoreur","danger_level":3}`)
	gen := &fakeGenerator{res: &generator.Result{
		Creature: c,
		Usage:    pricing.NewUsage(nil, pricing.ModelSonnet, 0, 1000, 1000),
	}}
	m := newTestModel(t, gen)

	m, cmd := press(t, m, runes("g"))
	require.NotNil(t, cmd)
	assert.True(t, m.loading)
	assert.Contains(t, m.View(), "Invocation en cours")

	msg := m.generate()()
	assert.Equal(t, 1, gen.calls)

	m, _ = press(t, m, msg)
	assert.False(t, m.loading)
	assert.Empty(t, m.errMsg)
	assert.Same(t, c, m.shown)

	view := m.View()
	assert.Contains(t, view, "Vorlax")
	assert.Contains(t, view, "$0.0180")
}

func TestGenerateUpstreamError(t *testing.T) {
	m := newTestModel(t, &fakeGenerator{err: errors.New("overloaded_error: busy")})
	m, _ = press(t, m, runes("g"))
	m, _ = press(t, m, m.generate()())

	assert.Equal(t, "overloaded_error: busy", m.errMsg)
	assert.Nil(t, m.shown)
	assert.Contains(t, m.View(), "overloaded_error: busy")
}

func TestGenerateParseErrorShowsRawText(t *testing.T) {
	_, perr := creature.Interpret("{not json")
	var pe *creature.ParseError
	require.ErrorAs(t, perr, &pe)

	m := newTestModel(t, &fakeGenerator{res: &generator.Result{
		ParseError: pe,
		RawText:    "{not json",
		Usage:      pricing.NewUsage(nil, pricing.ModelSonnet, 0, 10, 5),
	}})
	m, _ = press(t, m, m.generate()())

	assert.True(t, strings.HasPrefix(m.errMsg, "La réponse n'est pas un JSON valide. JSON parse error: "))
	view := m.View()
	assert.Contains(t, view, "{not json")
	assert.Contains(t, view, "15 tokens")
}

func TestGenerateIgnoredWhileLoading(t *testing.T) {
	gen := &fakeGenerator{}
	m := newTestModel(t, gen)
	m, cmd := press(t, m, runes("g"))
	require.NotNil(t, cmd)
	_, cmd = press(t, m, runes("g"))
	assert.Nil(t, cmd)
}

func TestAddRefusesDuplicates(t *testing.T) {
	c := mustCreature(t, `{"name":"Vorlax"}`)
	m := newTestModel(t, &fakeGenerator{res: &generator.Result{Creature: c}})
	m, _ = press(t, m, m.generate()())

	m, _ = press(t, m, runes("a"))
	assert.Equal(t, 1, m.Collection().Len())
	assert.Contains(t, m.status, "Ajouté")

	m, _ = press(t, m, runes("a"))
	assert.Equal(t, 1, m.Collection().Len())
	assert.Equal(t, "Déjà dans le bestiaire", m.status)
}

func TestExportCurrentAndCollection(t *testing.T) {
	c := mustCreature(t, `{"name":"Ombre Rampante","danger_level":4}`)
	m := newTestModel(t, &fakeGenerator{res: &generator.Result{Creature: c}})

	m, _ = press(t, m, runes("E"))
	assert.Equal(t, "Le bestiaire est vide", m.status)

	m, _ = press(t, m, m.generate()())
	m, _ = press(t, m, runes("e"))
	require.Empty(t, m.errMsg)

	data, err := os.ReadFile(filepath.Join(m.exportDir, "creature-ombre-rampante.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"danger_level\": 4")

	m, _ = press(t, m, runes("a"))
	m, _ = press(t, m, runes("E"))
	require.Empty(t, m.errMsg)

	data, err = os.ReadFile(filepath.Join(m.exportDir, collection.CollectionFilename))
	require.NoError(t, err)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(data, &all))
	require.Len(t, all, 1)
	assert.Equal(t, "Ombre Rampante", all[0]["name"])
}

func TestGalleryNavigation(t *testing.T) {
	coll := collection.New()
	for _, raw := range []string{`{"name":"Alpha"}`, `{"name":"Beta"}`, `{"name":"Gamma"}`} {
		_, err := coll.Add(mustCreature(t, raw))
		require.NoError(t, err)
	}
	m := NewModel(context.Background(), Options{Collection: coll, Settings: bestiary.DefaultSettings()})

	m, _ = press(t, m, runes("c"))
	assert.True(t, m.showGallery)
	assert.Contains(t, m.View(), "Bestiaire (3)")

	m, _ = press(t, m, runes("j"))
	m, _ = press(t, m, runes("j"))
	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 2, m.cursor)
	m, _ = press(t, m, runes("k"))
	assert.Equal(t, 1, m.cursor)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.showGallery)
	require.NotNil(t, m.shown)
	assert.Equal(t, "Beta", m.shown.Name())
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, nil)
	m, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestGenerateWithoutGenerator(t *testing.T) {
	m := newTestModel(t, nil)
	m, cmd := press(t, m, runes("g"))
	assert.Nil(t, cmd)
	assert.False(t, m.loading)
}
