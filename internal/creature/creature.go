// Package creature interprets generated creature documents.
package creature

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Creature is a decoded creature document. The shape is open-ended: object
// documents expose their fields through Fields and the typed accessors,
// other JSON values are carried untouched.
type Creature struct {
	doc              any
	portraitRejected bool
}

// FromDocument wraps an already decoded JSON value and applies the portrait
// policy to it.
func FromDocument(doc any) *Creature {
	rejected := enforcePortraitPolicy(doc)
	return &Creature{doc: doc, portraitRejected: rejected}
}

// PortraitRejected reports whether svg_portrait was replaced with null.
func (c *Creature) PortraitRejected() bool {
	return c != nil && c.portraitRejected
}

// Document returns the decoded JSON value.
func (c *Creature) Document() any {
	if c == nil {
		return nil
	}
	return c.doc
}

// Fields returns the document's members, or nil for non-object documents.
func (c *Creature) Fields() map[string]any {
	if c == nil {
		return nil
	}
	m, _ := c.doc.(map[string]any)
	return m
}

// MarshalJSON re-emits the document without HTML escaping, so portraits
// stay readable in exports.
func (c *Creature) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c.Document()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (c *Creature) UnmarshalJSON(data []byte) error {
	doc, err := decode(data)
	if err != nil {
		return err
	}
	c.portraitRejected = enforcePortraitPolicy(doc)
	c.doc = doc
	return nil
}

// String returns the member as text; numbers are formatted, other kinds are "".
func (c *Creature) String(key string) string {
	return asString(c.Fields()[key])
}

func (c *Creature) Name() string           { return c.String("name") }
func (c *Creature) Title() string          { return c.String("title") }
func (c *Creature) Type() string           { return c.String("type") }
func (c *Creature) Role() string           { return c.String("role") }
func (c *Creature) Element() string        { return c.String("element") }
func (c *Creature) Description() string    { return c.String("description") }
func (c *Creature) Appearance() string     { return c.String("appearance") }
func (c *Creature) Behavior() string       { return c.String("behavior") }
func (c *Creature) LoreConnection() string { return c.String("lore_connection") }
func (c *Creature) EncounterTip() string   { return c.String("encounter_tip") }
func (c *Creature) SVGPortrait() string    { return c.String(PortraitField) }

// DangerLevel returns danger_level as an int, 0 when absent or not a number.
func (c *Creature) DangerLevel() int {
	n, _ := asNumber(c.Fields()["danger_level"])
	return int(n)
}

// Stat is one entry of the stats block.
type Stat struct {
	Key   string
	Value float64
}

var statOrder = []string{"hp", "attack", "defense", "speed", "intelligence", "perception"}

// Stats returns numeric stats, well-known keys first, then the rest by name.
func (c *Creature) Stats() []Stat {
	raw, ok := c.Fields()["stats"].(map[string]any)
	if !ok {
		return nil
	}

	seen := make(map[string]bool, len(raw))
	var out []Stat
	for _, k := range statOrder {
		if n, ok := asNumber(raw[k]); ok {
			out = append(out, Stat{Key: k, Value: n})
		}
		seen[k] = true
	}

	var rest []string
	for k := range raw {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if n, ok := asNumber(raw[k]); ok {
			out = append(out, Stat{Key: k, Value: n})
		}
	}
	return out
}

// Ability is one entry of the abilities list.
type Ability struct {
	Name        string
	Cooldown    string
	Description string
}

// Abilities returns the object entries of the abilities list.
func (c *Creature) Abilities() []Ability {
	var out []Ability
	for _, m := range c.objects("abilities") {
		out = append(out, Ability{
			Name:        asString(m["name"]),
			Cooldown:    asString(m["cooldown"]),
			Description: asString(m["description"]),
		})
	}
	return out
}

// Weakness is one entry of the weaknesses list.
type Weakness struct {
	Name        string
	Description string
}

func (c *Creature) Weaknesses() []Weakness {
	var out []Weakness
	for _, m := range c.objects("weaknesses") {
		out = append(out, Weakness{
			Name:        asString(m["name"]),
			Description: asString(m["description"]),
		})
	}
	return out
}

// LootItem is one entry of the loot list.
type LootItem struct {
	Name        string
	DropRate    string
	Description string
}

func (c *Creature) Loot() []LootItem {
	var out []LootItem
	for _, m := range c.objects("loot") {
		out = append(out, LootItem{
			Name:        asString(m["name"]),
			DropRate:    asString(m["drop_rate"]),
			Description: asString(m["description"]),
		})
	}
	return out
}

func (c *Creature) objects(key string) []map[string]any {
	list, ok := c.Fields()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil && !math.IsInf(f, 0)
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}
