// Package bestiary holds the Cendrebourg world catalogs and turns creature
// settings into generation requests.
package bestiary

import "github.com/efebarandurmaz/bestiary/internal/pricing"

// Habitat is a region of the Cendrebourg world.
type Habitat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DangerBase  int    `json:"danger_base"`
}

// Option is a selectable catalog entry.
type Option struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Element is a magical affinity with its display colour.
type Element struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// ModelOption is a generation model offered to the user.
type ModelOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var Habitats = []Habitat{
	{"brumesombre", "Forêt de Brumesombre", "Forêt dense aux brumes éternelles, lieu de rituels occultes", 3},
	{"ruines_nord", "Ruines du Nord", "Fortifications antiques hantées par des présences anciennes", 4},
	{"mine", "Mine de Ferrecendre", "Galeries abandonnées où résonnent des bruits inexpliqués", 3},
	{"marais", "Marais de l'Oubli", "Tourbières empoisonnées à l'ouest de Cendrebourg", 2},
	{"collines", "Collines des Ossements", "Terres arides parsemées d'os anciens et de cairns", 3},
	{"riviere", "Rivière Grise", "Cours d'eau sombre traversant le village, étrangement glacé", 1},
	{"souterrains", "Catacombes de Cendrebourg", "Réseau souterrain sous le village, scellé depuis des décennies", 5},
}

var CreatureTypes = []Option{
	{"beast", "🐺 Bête", "Animal corrompu ou mutant"},
	{"undead", "💀 Mort-vivant", "Créature réanimée par nécromancie"},
	{"spirit", "👻 Esprit", "Entité immatérielle ou spectre"},
	{"construct", "🗿 Construct", "Créature artificielle, golem ou automate"},
	{"aberration", "🐙 Aberration", "Chose indicible née de la magie corrompue"},
	{"plant", "🌿 Plante", "Végétal animé et dangereux"},
}

var Roles = []Option{
	{"predator", "Prédateur", "Chasse activement les voyageurs"},
	{"guardian", "Gardien", "Protège un lieu ou un objet"},
	{"swarm", "Essaim", "Attaque en groupe, faible individuellement"},
	{"boss", "Boss", "Créature unique et redoutable"},
	{"ambient", "Ambiance", "Peu dangereux mais contribue à l'atmosphère"},
}

var Elements = []Element{
	{"shadow", "🌑 Ombre", "#6b5a8a"},
	{"fire", "🔥 Feu", "#d4603a"},
	{"frost", "❄️ Givre", "#5a9fd4"},
	{"poison", "☠️ Poison", "#6ba85a"},
	{"arcane", "✨ Arcane", "#b080d4"},
	{"none", "⚪ Aucun", "#8b8b8b"},
}

// StatNames maps stat keys to their display names.
var StatNames = map[string]string{
	"hp":           "Points de vie",
	"attack":       "Attaque",
	"defense":      "Défense",
	"speed":        "Vitesse",
	"intelligence": "Intelligence",
	"perception":   "Perception",
}

// LoreConnections are the story hooks a creature may tie into.
var LoreConnections = []string{
	"Le Cercle d'Obsidienne utilise ces créatures dans ses rituels",
	"La créature est liée aux disparitions dans la forêt de Brumesombre",
	"Theron a été vu à proximité de spécimens capturés",
	"Aldric a entendu parler de cette créature par d'anciens soldats",
	"Les Lames Grises ont affronté cette créature et perdu deux hommes",
	"La Guilde des Marchands offre une prime pour chaque spécimen éliminé",
	"Gareth a trouvé des traces de cette créature lors de ses patrouilles",
	"La créature semble attirée par les symboles rituels gravés en forêt",
}

var dangerLabels = []string{"", "Inoffensif", "Mineur", "Modéré", "Dangereux", "Létal"}

var Models = []ModelOption{
	{pricing.ModelSonnet, "Sonnet 4 (meilleur SVG)"},
	{pricing.ModelHaiku, "Haiku 4.5 (rapide)"},
}

// DangerLabel names a danger level, "" outside 1..5.
func DangerLabel(level int) string {
	if level < MinDanger || level > MaxDanger {
		return ""
	}
	return dangerLabels[level]
}

// StatName returns the display name of a stat key, or the key itself.
func StatName(key string) string {
	if n, ok := StatNames[key]; ok {
		return n
	}
	return key
}

func FindHabitat(id string) (Habitat, bool) {
	for _, h := range Habitats {
		if h.ID == id {
			return h, true
		}
	}
	return Habitat{}, false
}

func FindElement(id string) (Element, bool) {
	for _, e := range Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

func findOption(opts []Option, id string) (Option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// TypeLabel returns the label of a creature type, or id when unknown.
func TypeLabel(id string) string {
	if o, ok := findOption(CreatureTypes, id); ok {
		return o.Label
	}
	return id
}

// RoleLabel returns the label of a role, or id when unknown.
func RoleLabel(id string) string {
	if o, ok := findOption(Roles, id); ok {
		return o.Label
	}
	return id
}

// ElementLabel returns the label of an element, or id when unknown.
func ElementLabel(id string) string {
	if e, ok := FindElement(id); ok {
		return e.Label
	}
	return id
}

// ElementColor returns the display colour of an element, grey when unknown.
func ElementColor(id string) string {
	if e, ok := FindElement(id); ok {
		return e.Color
	}
	return "#8b8b8b"
}

// Catalog is the full set of choices, as served to front ends.
type Catalog struct {
	Habitats        []Habitat         `json:"habitats"`
	CreatureTypes   []Option          `json:"creature_types"`
	Roles           []Option          `json:"roles"`
	Elements        []Element         `json:"elements"`
	StatNames       map[string]string `json:"stat_names"`
	LoreConnections []string          `json:"lore_connections"`
	DangerLabels    []string          `json:"danger_labels"`
	Models          []ModelOption     `json:"models"`
	Defaults        Settings          `json:"defaults"`
}

// FullCatalog returns every catalog with defaults taken from s.
func FullCatalog(s Settings) Catalog {
	return Catalog{
		Habitats:        Habitats,
		CreatureTypes:   CreatureTypes,
		Roles:           Roles,
		Elements:        Elements,
		StatNames:       StatNames,
		LoreConnections: LoreConnections,
		DangerLabels:    dangerLabels[1:],
		Models:          Models,
		Defaults:        s,
	}
}
