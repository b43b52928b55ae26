package report

import (
	"github.com/charmbracelet/glamour"
)

// Terminal renders markdown for a terminal. Style is a glamour standard
// style name ("dark", "light", "notty", "ascii"); an empty style prints
// the markdown unchanged.
type Terminal struct {
	Style string
	Width int
}

func (t Terminal) Render(md string) (string, error) {
	if t.Style == "" || t.Style == "plain" {
		return md, nil
	}
	width := t.Width
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(t.Style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md, err
	}
	out, err := r.Render(md)
	if err != nil {
		return md, err
	}
	return out, nil
}
