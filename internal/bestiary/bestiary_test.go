package bestiary

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, Settings{
		CreatureType: "beast",
		Habitat:      "brumesombre",
		Role:         "predator",
		Element:      "shadow",
		DangerLevel:  3,
		Model:        "claude-sonnet-4-20250514",
		Temperature:  0.9,
	}, s)
	assert.NoError(t, s.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"unknown type", func(s *Settings) { s.CreatureType = "dragon" }, `unknown creature type "dragon"`},
		{"unknown habitat", func(s *Settings) { s.Habitat = "lune" }, `unknown habitat "lune"`},
		{"unknown role", func(s *Settings) { s.Role = "pet" }, `unknown role "pet"`},
		{"unknown element", func(s *Settings) { s.Element = "water" }, `unknown element "water"`},
		{"danger low", func(s *Settings) { s.DangerLevel = 0 }, "danger level 0 outside 1..5"},
		{"danger high", func(s *Settings) { s.DangerLevel = 6 }, "danger level 6 outside 1..5"},
		{"temperature low", func(s *Settings) { s.Temperature = 0.2 }, "temperature 0.20 outside 0.3..1.0"},
		{"temperature high", func(s *Settings) { s.Temperature = 1.5 }, "temperature 1.50 outside 0.3..1.0"},
		{"no model", func(s *Settings) { s.Model = "" }, "model is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	err := Settings{}.Validate()
	require.Error(t, err)
	assert.Len(t, strings.Split(err.Error(), "\n"), 7)
}

func TestValidate_UnknownModelAllowed(t *testing.T) {
	s := DefaultSettings()
	s.Model = "some-future-model"
	assert.NoError(t, s.Validate())
}

func TestWithDefaults(t *testing.T) {
	s := Settings{Element: "fire", DangerLevel: 5}.WithDefaults(DefaultSettings())
	assert.Equal(t, "fire", s.Element)
	assert.Equal(t, 5, s.DangerLevel)
	assert.Equal(t, "beast", s.CreatureType)
	assert.Equal(t, pricing.ModelSonnet, s.Model)
	assert.InDelta(t, 0.9, s.Temperature, 1e-9)
}

func TestBuildRequest(t *testing.T) {
	s := DefaultSettings()
	s.Model = pricing.ModelHaiku
	s.Temperature = 0.5

	req := BuildRequest(s)
	assert.Equal(t, pricing.ModelHaiku, req.Model)
	assert.InDelta(t, 0.5, req.Temperature, 1e-9)
	assert.Equal(t,
		"Génère une créature de type 🐺 Bête, rôle Prédateur, élément 🌑 Ombre, danger 3/5. Sois créatif et original.",
		req.UserMessage)
	assert.Contains(t, req.SystemPrompt, "Forêt de Brumesombre")
	assert.Contains(t, req.SystemPrompt, "svg_portrait")
	assert.Contains(t, req.SystemPrompt, "#6b5a8a")
	assert.Contains(t, req.SystemPrompt, "Modéré")
}

func TestBuildRequest_UnknownIDsFallBackToRaw(t *testing.T) {
	s := DefaultSettings()
	s.CreatureType = "dragon"
	s.Role = "pet"
	s.Element = "water"
	s.Habitat = "lune"

	req := BuildRequest(s)
	assert.Contains(t, req.UserMessage, "type dragon, rôle pet, élément water")
	assert.Contains(t, req.SystemPrompt, "- Habitat : lune\n")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Létal", DangerLabel(5))
	assert.Equal(t, "Inoffensif", DangerLabel(1))
	assert.Empty(t, DangerLabel(0))
	assert.Empty(t, DangerLabel(9))
	assert.Equal(t, "Points de vie", StatName("hp"))
	assert.Equal(t, "charisma", StatName("charisma"))
	assert.Equal(t, "#d4603a", ElementColor("fire"))
	assert.Equal(t, "#8b8b8b", ElementColor("water"))
}

func TestFullCatalog_JSON(t *testing.T) {
	data, err := json.Marshal(FullCatalog(DefaultSettings()))
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"habitats", "creature_types", "roles", "elements", "stat_names", "lore_connections", "danger_labels", "models", "defaults"} {
		assert.Contains(t, decoded, key)
	}

	var labels []string
	require.NoError(t, json.Unmarshal(decoded["danger_labels"], &labels))
	assert.Equal(t, []string{"Inoffensif", "Mineur", "Modéré", "Dangereux", "Létal"}, labels)
}
