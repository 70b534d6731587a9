package lcd

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Select key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "w"),
			key.WithHelp("↑/w", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "s"),
			key.WithHelp("↓/s", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "a"),
			key.WithHelp("←/a", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "d"),
			key.WithHelp("→/d", "right"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " ", "space"),
			key.WithHelp("enter/space", "select"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type lineBinding struct {
	line    terminal.Line
	binding key.Binding
}

// lines pairs each input line with its binding
func (k keyMap) lines() []lineBinding {
	return []lineBinding{
		{terminal.LineUp, k.Up},
		{terminal.LineDown, k.Down},
		{terminal.LineLeft, k.Left},
		{terminal.LineRight, k.Right},
		{terminal.LineSelect, k.Select},
	}
}

func (k keyMap) help() string {
	bindings := []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Select, k.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return strings.Join(parts, "  ")
}
