// Package toast shows in-app toasts. Toasts are never deduplicated by the
// reminder ledger; every reminder that passes the ledger is toasted once.
package toast

import (
	"context"
	"errors"

	"github.com/nhle/deskalert/internal/model"
)

// Toast is one in-app message.
type Toast struct {
	Title     string
	Message   string
	Priority  model.Priority
	Variant   model.ToastVariant
	ActionURL string
	Category  model.Category
}

// FromEvent builds the toast for ev.
func FromEvent(ev model.NotificationEvent) Toast {
	return Toast{
		Title:     ev.Title,
		Message:   ev.Message,
		Priority:  ev.Priority,
		Variant:   ev.Variant,
		ActionURL: ev.ActionURL,
		Category:  ev.Category,
	}
}

// Toaster displays toasts.
type Toaster interface {
	Toast(ctx context.Context, t Toast) error
}

// Fanout shows each toast on several toasters.
type Fanout []Toaster

// Toast delivers t to every toaster and joins their errors.
func (f Fanout) Toast(ctx context.Context, t Toast) error {
	var errs []error
	for _, toaster := range f {
		if err := toaster.Toast(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every toast.
type Discard struct{}

// Toast does nothing.
func (Discard) Toast(context.Context, Toast) error { return nil }
