package bestiary

import (
	"fmt"
	"strings"
)

// MaxOutputTokens bounds every generation call.
const MaxOutputTokens = 2500

// GenerationRequest is what the generator sends to the text endpoint.
type GenerationRequest struct {
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"system_prompt"`
	UserMessage  string  `json:"user_message"`
}

// BuildRequest turns settings into a generation request. Labels fall back to
// the raw id when the id is not in a catalog.
func BuildRequest(s Settings) GenerationRequest {
	typeLabel := TypeLabel(s.CreatureType)
	roleLabel := RoleLabel(s.Role)
	elementLabel := ElementLabel(s.Element)

	return GenerationRequest{
		Model:        s.Model,
		Temperature:  s.Temperature,
		SystemPrompt: SystemPrompt(s),
		UserMessage: fmt.Sprintf("Génère une créature de type %s, rôle %s, élément %s, danger %d/5. Sois créatif et original.",
			typeLabel, roleLabel, elementLabel, s.DangerLevel),
	}
}

// SystemPrompt describes the world and the JSON document the model must return.
func SystemPrompt(s Settings) string {
	var b strings.Builder

	b.WriteString("Tu es le maître du bestiaire de Cendrebourg, un village isolé d'un monde de dark fantasy ")
	b.WriteString("entouré de forêts brumeuses, de ruines et de catacombes scellées.\n\n")

	b.WriteString("## Régions\n")
	for _, h := range Habitats {
		fmt.Fprintf(&b, "- %s : %s (danger de base %d/5)\n", h.Name, h.Description, h.DangerBase)
	}

	b.WriteString("\n## Intrigues en cours\n")
	for _, l := range LoreConnections {
		fmt.Fprintf(&b, "- %s\n", l)
	}

	b.WriteString("\n## Créature demandée\n")
	fmt.Fprintf(&b, "- Type : %s\n", TypeLabel(s.CreatureType))
	if h, ok := FindHabitat(s.Habitat); ok {
		fmt.Fprintf(&b, "- Habitat : %s (%s)\n", h.Name, h.Description)
	} else {
		fmt.Fprintf(&b, "- Habitat : %s\n", s.Habitat)
	}
	fmt.Fprintf(&b, "- Rôle : %s\n", RoleLabel(s.Role))
	fmt.Fprintf(&b, "- Élément : %s\n", ElementLabel(s.Element))
	if label := DangerLabel(s.DangerLevel); label != "" {
		fmt.Fprintf(&b, "- Danger : %d/5 (%s)\n", s.DangerLevel, label)
	} else {
		fmt.Fprintf(&b, "- Danger : %d/5\n", s.DangerLevel)
	}

	b.WriteString("\n## Format de réponse\n")
	b.WriteString("Réponds UNIQUEMENT avec un objet JSON valide, sans texte autour, de la forme :\n")
	b.WriteString(responseShape)
	b.WriteString("\nLes statistiques vont de 1 à 100 et reflètent le niveau de danger. ")
	b.WriteString("lore_connection doit s'appuyer sur une des intrigues ci-dessus. ")
	fmt.Fprintf(&b, "svg_portrait est un SVG autonome de 200x200 qui commence par <svg, utilise la couleur %s ", ElementColor(s.Element))
	b.WriteString("et ne contient ni script ni ressource externe.\n")

	return b.String()
}

const responseShape = `{
  "name": "nom de la créature",
  "title": "surnom évocateur",
  "type": "type",
  "role": "rôle",
  "element": "élément",
  "danger_level": 3,
  "description": "2-3 phrases",
  "appearance": "apparence physique",
  "behavior": "comportement et habitudes",
  "stats": {"hp": 0, "attack": 0, "defense": 0, "speed": 0, "intelligence": 0, "perception": 0},
  "abilities": [{"name": "", "cooldown": "", "description": ""}],
  "weaknesses": [{"name": "", "description": ""}],
  "loot": [{"name": "", "drop_rate": "", "description": ""}],
  "lore_connection": "lien avec les intrigues",
  "encounter_tip": "conseil aux aventuriers",
  "svg_portrait": "<svg ...>...</svg>"
}
`
