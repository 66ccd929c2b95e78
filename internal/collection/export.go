package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/efebarandurmaz/bestiary/internal/creature"
)

// CollectionFilename is the download name of a full collection export.
const CollectionFilename = "bestiaire-cendrebourg.json"

const maxSlugRunes = 30

var whitespaceRun = regexp.MustCompile(`\s+`)

// CreatureFilename returns the download name of a single creature export.
func CreatureFilename(c *creature.Creature) string {
	slug := whitespaceRun.ReplaceAllString(strings.ToLower(c.Name()), "-")
	if r := []rune(slug); len(r) > maxSlugRunes {
		slug = string(r[:maxSlugRunes])
	}
	if slug == "" {
		slug = "export"
	}
	return "creature-" + slug + ".json"
}

// WriteCreature writes one creature as 2-space indented JSON.
func WriteCreature(w io.Writer, c *creature.Creature) error {
	return writeIndented(w, c)
}

// WriteAll writes creatures as an indented JSON array, in order.
func WriteAll(w io.Writer, creatures []*creature.Creature) error {
	if creatures == nil {
		creatures = []*creature.Creature{}
	}
	return writeIndented(w, creatures)
}

func writeIndented(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if _, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ReadAll reads an export back. A top-level array yields one creature per
// element; any other document yields a single creature.
func ReadAll(r io.Reader) ([]*creature.Creature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*creature.Creature
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, &creature.ParseError{Err: err}
		}
		return list, nil
	}

	var c creature.Creature
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, &creature.ParseError{Err: err}
	}
	return []*creature.Creature{&c}, nil
}

// Import adds every creature read from r, skipping duplicates. It returns
// the entries it added, in order, and the number skipped.
func (c *Collection) Import(r io.Reader) (added []Entry, skipped int, err error) {
	creatures, err := ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	for _, cr := range creatures {
		entry, err := c.Add(cr)
		if err != nil {
			skipped++
			continue
		}
		added = append(added, entry)
	}
	return added, skipped, nil
}
