// Package tui is a terminal frame browser: one frame at a time, with its canonical text and
// a braille preview scaled to the dataset bounding box.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dataviewer2d/dataviewer/internal/frameindex"
	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Source is what the browser reads frames from: a local frame log or a remote server.
type Source interface {
	Len() int
	Bounds() (lo, hi scene.Point, ok bool)
	ReadFrame(n int) (scene.Scene, error)
}

type readerSource struct {
	*frameindex.Reader
}

func (r readerSource) Bounds() (lo, hi scene.Point, ok bool) {
	return r.Index().BBox().MinMax()
}

// FromReader adapts a frame reader.
func FromReader(r *frameindex.Reader) Source {
	return readerSource{r}
}

type keyMap struct {
	Next  key.Binding
	Prev  key.Binding
	First key.Binding
	Last  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.First, k.Last, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Next:  key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→", "next")),
	Prev:  key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←", "prev")),
	First: key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first")),
	Last:  key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// frameMsg carries a loaded frame back into Update.
type frameMsg struct {
	n      int
	shapes scene.Scene
	err    error
}

// Model is the browser state.
type Model struct {
	src        Source
	serializer scenelang.Serializer

	n       int
	nframes int

	lo, hi  scene.Point
	bounded bool

	shapes  scene.Scene
	err     error
	loading bool

	width  int
	height int

	keys keyMap
	help help.Model
}

// New creates a browser positioned on frame 0.
func New(src Source, serializer scenelang.Serializer) Model {
	m := Model{
		src:        src,
		serializer: serializer,
		nframes:    src.Len(),
		keys:       defaultKeys,
		help:       help.New(),
	}
	m.lo, m.hi, m.bounded = src.Bounds()
	return m
}

// Run starts the browser in the alternate screen and blocks until it quits.
func Run(src Source, serializer scenelang.Serializer) error {
	_, err := tea.NewProgram(New(src, serializer), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	if m.nframes == 0 {
		return nil
	}
	return m.load(0)
}

func (m Model) load(n int) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		shapes, err := src.ReadFrame(n)
		return frameMsg{n: n, shapes: shapes, err: err}
	}
}

// goTo moves to frame n, clamped to the log.
func (m Model) goTo(n int) (Model, tea.Cmd) {
	n = max(0, min(n, m.nframes-1))
	if m.nframes == 0 || (n == m.n && !m.loading && m.shapes != nil) {
		return m, nil
	}
	m.n = n
	m.loading = true
	return m, m.load(n)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			return m.goTo(m.n + 1)
		case key.Matches(msg, m.keys.Prev):
			return m.goTo(m.n - 1)
		case key.Matches(msg, m.keys.First):
			return m.goTo(0)
		case key.Matches(msg, m.keys.Last):
			return m.goTo(m.nframes - 1)
		}
	case frameMsg:
		// a stale load for a frame we already left
		if msg.n != m.n {
			return m, nil
		}
		m.loading = false
		m.shapes, m.err = msg.shapes, msg.err
		if m.shapes == nil {
			m.shapes = scene.Scene{}
		}
	}
	return m, nil
}

// Frame returns the current frame number.
func (m Model) Frame() int {
	return m.n
}

func (m Model) status() string {
	if m.nframes == 0 {
		return "no frames"
	}
	s := fmt.Sprintf("frame %d/%d  shapes %d", m.n, m.nframes-1, len(m.shapes))
	if m.loading {
		s += "  loading…"
	}
	return s
}
