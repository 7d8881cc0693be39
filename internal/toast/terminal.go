package toast

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/theme"
)

// Terminal renders toasts as styled boxes on a writer, normally the
// daemon's console.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal creates a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Toast renders t.
func (t *Terminal) Toast(ctx context.Context, ts Toast) error {
	out := Render(ts)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintln(t.w, out); err != nil {
		return fmt.Errorf("writing toast: %w", err)
	}
	return nil
}

// Render returns the styled box for ts.
func Render(ts Toast) string {
	title := theme.TitleStyle.Render(ts.Title)
	if ts.Priority != "" && ts.Priority != model.PriorityNormal {
		label := theme.PriorityStyle(ts.Priority).Render(strings.ToUpper(string(ts.Priority)))
		title = lipgloss.JoinHorizontal(lipgloss.Top, label, " ", title)
	}

	lines := []string{title}
	if ts.Message != "" {
		lines = append(lines, ts.Message)
	}
	if ts.ActionURL != "" {
		lines = append(lines, theme.HintStyle.Render(ts.ActionURL))
	}

	return theme.VariantStyle(ts.Variant).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
