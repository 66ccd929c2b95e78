package tui

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/collection"
)

// renderGallery lists the collection with the cursor entry highlighted.
func renderGallery(entries []collection.Entry, cursor int, st *Styles, width int) string {
	if len(entries) == 0 {
		return st.Muted.Render("Le bestiaire est vide. Générez une créature puis appuyez sur a.")
	}

	var b strings.Builder
	b.WriteString(st.Section.Render(fmt.Sprintf("Bestiaire (%d)", len(entries))))
	b.WriteString("\n")

	for i, e := range entries {
		c := e.Creature
		name := c.Name()
		if name == "" {
			name = "Créature sans nom"
		}
		line := fmt.Sprintf("%s  %s", name, st.Muted.Render(DangerStars(c.DangerLevel())))
		if el := c.Element(); el != "" {
			line += "  " + ElementStyle(bestiary.ElementColor(el)).Render(bestiary.ElementLabel(el))
		}
		if title := c.Title(); title != "" {
			line += "\n" + st.Subtitle.Render(title)
		}

		style := st.GalleryItem
		if i == cursor {
			style = st.GalleryActive
		}
		b.WriteString(style.Width(max(width-4, 20)).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
