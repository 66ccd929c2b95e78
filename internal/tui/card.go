package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

const statBarWidth = 20

// RenderCard draws a creature as a bordered card of the given width.
func RenderCard(c *creature.Creature, st *Styles, width int) string {
	if width < 40 {
		width = 40
	}
	inner := width - 6
	body := st.Body.Width(inner)

	if c.Fields() == nil {
		// Valid JSON that is not an object: show it as is.
		raw, _ := c.MarshalJSON()
		return st.Card.Width(width - 2).Render(st.Muted.Render("Document sans champs nommés") + "\n\n" + body.Render(string(raw)))
	}

	var parts []string

	name := c.Name()
	if name == "" {
		name = "Créature sans nom"
	}
	header := st.Title.Render(name)
	if title := c.Title(); title != "" {
		header += "\n" + st.Subtitle.Render(title)
	}
	parts = append(parts, header, renderBadges(c, st))

	for _, f := range []struct{ label, text string }{
		{"", c.Description()},
		{"Apparence", c.Appearance()},
		{"Comportement", c.Behavior()},
	} {
		if f.text == "" {
			continue
		}
		if f.label == "" {
			parts = append(parts, body.MarginTop(1).Render(f.text))
			continue
		}
		parts = append(parts, st.Section.Render(f.label), body.Render(f.text))
	}

	if stats := c.Stats(); len(stats) > 0 {
		parts = append(parts, st.Section.Render("Statistiques"))
		for _, s := range stats {
			parts = append(parts, renderStat(s, st))
		}
	}

	if abilities := c.Abilities(); len(abilities) > 0 {
		parts = append(parts, st.Section.Render("Capacités"))
		for _, a := range abilities {
			line := st.Label.Render(a.Name)
			if a.Cooldown != "" {
				line += st.Muted.Render(" (" + a.Cooldown + ")")
			}
			parts = append(parts, line, body.PaddingLeft(2).Render(a.Description))
		}
	}

	if weaknesses := c.Weaknesses(); len(weaknesses) > 0 {
		parts = append(parts, st.Section.Render("Faiblesses"))
		for _, w := range weaknesses {
			parts = append(parts, body.Render("• "+st.Label.Render(w.Name)+" : "+w.Description))
		}
	}

	if loot := c.Loot(); len(loot) > 0 {
		parts = append(parts, st.Section.Render("Butin"))
		for _, l := range loot {
			line := "• " + st.Label.Render(l.Name)
			if l.DropRate != "" {
				line += st.Muted.Render(" [" + l.DropRate + "]")
			}
			if l.Description != "" {
				line += " : " + l.Description
			}
			parts = append(parts, body.Render(line))
		}
	}

	if lore := c.LoreConnection(); lore != "" {
		parts = append(parts, st.Section.Render("Lien avec l'intrigue"), body.Italic(true).Render(lore))
	}
	if tip := c.EncounterTip(); tip != "" {
		parts = append(parts, st.Section.Render("Conseil de rencontre"), body.Render(tip))
	}

	switch {
	case c.SVGPortrait() != "":
		parts = append(parts, st.Muted.MarginTop(1).Render(fmt.Sprintf("Portrait SVG disponible (%d octets)", len(c.SVGPortrait()))))
	case c.PortraitRejected():
		parts = append(parts, st.Muted.MarginTop(1).Render("Portrait rejeté (pas un SVG)"))
	}

	return st.Card.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func renderBadges(c *creature.Creature, st *Styles) string {
	var badges []string
	if t := c.Type(); t != "" {
		badges = append(badges, st.Badge.Render(bestiary.TypeLabel(t)))
	}
	if r := c.Role(); r != "" {
		badges = append(badges, st.Badge.Render(bestiary.RoleLabel(r)))
	}
	if e := c.Element(); e != "" {
		badges = append(badges, ElementStyle(bestiary.ElementColor(e)).Render(bestiary.ElementLabel(e)))
	}
	if d := c.DangerLevel(); d > 0 {
		badges = append(badges, st.DangerBadge.Render(DangerStars(d)+" "+bestiary.DangerLabel(d)))
	}
	if len(badges) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(badges, " "))
}

func renderStat(s creature.Stat, st *Styles) string {
	ratio := math.Max(0, math.Min(1, s.Value/100))
	filled := int(math.Round(ratio * statBarWidth))
	bar := st.StatBar.Render(strings.Repeat("█", filled)) + st.StatBarRest.Render(strings.Repeat("░", statBarWidth-filled))
	return fmt.Sprintf("%-16s %s %s", bestiary.StatName(s.Key), bar, formatStat(s.Value))
}

func formatStat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

// DangerStars draws a danger level as filled and empty stars out of five.
func DangerStars(level int) string {
	level = max(0, min(level, bestiary.MaxDanger))
	return strings.Repeat("★", level) + strings.Repeat("☆", bestiary.MaxDanger-level)
}

// FormatUsage renders the usage footer line.
func FormatUsage(u pricing.Usage) string {
	return fmt.Sprintf("%s · %d ms · %d tokens (%d in / %d out) · $%.4f",
		u.Model, u.LatencyMs, u.TotalTokens, u.InputTokens, u.OutputTokens, u.CostUSD)
}
