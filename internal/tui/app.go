package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/collection"
	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/generator"
)

// Generator is the part of the generation service the TUI needs.
type Generator interface {
	GenerateFromSettings(ctx context.Context, s bestiary.Settings) (*generator.Result, error)
}

type generatedMsg struct {
	res *generator.Result
	err error
}

type keyMap struct {
	Generate  key.Binding
	Add       key.Binding
	Export    key.Binding
	ExportAll key.Binding
	Gallery   key.Binding
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	Quit      key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Generate, km.Add, km.Export, km.ExportAll, km.Gallery, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Generate, km.Add, km.Export, km.ExportAll},
		{km.Gallery, km.Up, km.Down, km.Select},
		{km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "générer"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "ajouter"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "exporter"),
		),
		ExportAll: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "exporter le bestiaire"),
		),
		Gallery: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "collection"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "haut"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "bas"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "afficher"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quitter"),
		),
	}
}

// Options configures the TUI.
type Options struct {
	Generator  Generator
	Settings   bestiary.Settings
	Collection *collection.Collection
	ExportDir  string
}

// Model is the interactive bestiary screen.
type Model struct {
	ctx        context.Context
	gen        Generator
	settings   bestiary.Settings
	collection *collection.Collection
	exportDir  string

	styles   *Styles
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	width  int
	height int

	loading     bool
	current     *generator.Result
	shown       *creature.Creature
	errMsg      string
	status      string
	showGallery bool
	cursor      int
	quitting    bool
}

// NewModel creates the TUI model. The context bounds every generation call.
func NewModel(ctx context.Context, opts Options) Model {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	coll := opts.Collection
	if coll == nil {
		coll = collection.New()
	}
	dir := opts.ExportDir
	if dir == "" {
		dir = "."
	}

	return Model{
		ctx:        ctx,
		gen:        opts.Generator,
		settings:   opts.Settings,
		collection: coll,
		exportDir:  dir,
		styles:     styles,
		keys:       newKeyMap(),
		help:       help.New(),
		spinner:    sp,
		viewport:   viewport.New(80, 20),
		width:      80,
		height:     24,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Collection returns the session collection.
func (m Model) Collection() *collection.Collection { return m.collection }

func (m Model) generate() tea.Cmd {
	ctx, gen, settings := m.ctx, m.gen, m.settings
	return func() tea.Msg {
		res, err := gen.GenerateFromSettings(ctx, settings)
		return generatedMsg{res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 3)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case generatedMsg:
		m.loading = false
		switch {
		case msg.err != nil:
			m.errMsg = msg.err.Error()
		case msg.res.ParseError != nil:
			m.current = msg.res
			m.shown = nil
			m.errMsg = "La réponse n'est pas un JSON valide. " + msg.res.ParseError.Error()
		default:
			m.current = msg.res
			m.shown = msg.res.Creature
			m.errMsg = ""
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Generate):
		if m.loading || m.gen == nil {
			return m, nil
		}
		m.loading = true
		m.errMsg = ""
		m.status = ""
		m.showGallery = false
		return m, tea.Batch(m.spinner.Tick, m.generate())

	case key.Matches(msg, m.keys.Add):
		if m.shown == nil {
			return m, nil
		}
		if _, err := m.collection.Add(m.shown); err != nil {
			if errors.Is(err, collection.ErrDuplicate) {
				m.status = "Déjà dans le bestiaire"
			} else {
				m.errMsg = err.Error()
			}
			return m, nil
		}
		m.status = fmt.Sprintf("Ajouté au bestiaire (%d)", m.collection.Len())
		return m, nil

	case key.Matches(msg, m.keys.ExportAll):
		if m.collection.Len() == 0 {
			m.status = "Le bestiaire est vide"
			return m, nil
		}
		m.exportFile(collection.CollectionFilename, func(f *os.File) error {
			return collection.WriteAll(f, m.collection.Creatures())
		})
		return m, nil

	case key.Matches(msg, m.keys.Export):
		if m.shown == nil {
			return m, nil
		}
		c := m.shown
		m.exportFile(collection.CreatureFilename(c), func(f *os.File) error {
			return collection.WriteCreature(f, c)
		})
		return m, nil

	case key.Matches(msg, m.keys.Gallery):
		m.showGallery = !m.showGallery
		m.cursor = min(m.cursor, max(m.collection.Len()-1, 0))
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.showGallery {
			if m.cursor < m.collection.Len()-1 {
				m.cursor++
			}
			m.refresh()
			return m, nil
		}
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.showGallery {
			if m.cursor > 0 {
				m.cursor--
			}
			m.refresh()
			return m, nil
		}
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if !m.showGallery {
			return m, nil
		}
		entries := m.collection.List()
		if m.cursor < len(entries) {
			m.shown = entries[m.cursor].Creature
			m.current = nil
			m.errMsg = ""
			m.showGallery = false
			m.refresh()
		}
		return m, nil
	}

	return m, nil
}

// exportFile creates name in the export directory, reporting the outcome in
// the status line.
func (m *Model) exportFile(name string, write func(*os.File) error) {
	path := filepath.Join(m.exportDir, name)
	f, err := os.Create(path)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	werr := write(f)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.status = "Exporté : " + path
}

// refresh re-renders the scrollable area.
func (m *Model) refresh() {
	var content string
	switch {
	case m.showGallery:
		content = renderGallery(m.collection.List(), m.cursor, m.styles, m.width)
	case m.shown != nil:
		content = RenderCard(m.shown, m.styles, min(m.width, 100))
	case m.current != nil && m.current.ParseError != nil:
		content = m.styles.Label.Render("Texte reçu") + "\n" + m.styles.RawText.Width(max(m.width-4, 20)).Render(m.current.RawText)
	default:
		content = m.styles.Muted.Render("Appuyez sur g pour invoquer une créature.")
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, m.renderTopBar())

	if m.errMsg != "" {
		sections = append(sections, m.styles.ErrorBanner.Render(m.errMsg))
	} else if m.status != "" {
		sections = append(sections, m.styles.StatusBanner.Render(m.status))
	}

	if m.loading {
		sections = append(sections, m.spinner.View()+" "+m.styles.Body.Render("Invocation en cours…"))
	} else {
		sections = append(sections, m.viewport.View())
	}

	if m.current != nil {
		sections = append(sections, m.styles.Usage.Render(FormatUsage(m.current.Usage)))
	}
	sections = append(sections, m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTopBar() string {
	s := m.settings
	title := m.styles.Title.Render("Bestiaire de Cendrebourg")
	parts := []string{
		bestiary.TypeLabel(s.CreatureType),
		bestiary.RoleLabel(s.Role),
		bestiary.ElementLabel(s.Element),
		DangerStars(s.DangerLevel),
		s.Model,
		fmt.Sprintf("t=%.1f", s.Temperature),
	}
	if h, ok := bestiary.FindHabitat(s.Habitat); ok {
		parts = append([]string{h.Name}, parts...)
	}
	count := m.styles.Badge.Render(fmt.Sprintf("%d dans le bestiaire", m.collection.Len()))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", count) + "\n" + m.styles.Muted.Render(strings.Join(parts, " · "))
}
