// Package dataset keeps the signed-in user's assignments, payments and
// meetings in memory for the scanners.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/model"
)

// Loader fetches collections from the system of record.
type Loader interface {
	ListAssignments(ctx context.Context) ([]model.Assignment, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)
	ListMeetings(ctx context.Context) ([]model.Meeting, error)
}

// Dataset is the cached view of the user's data. Readers get copies.
type Dataset struct {
	loader Loader
	log    *log.Logger

	mu          sync.RWMutex
	assignments []model.Assignment
	payments    []model.Payment
	meetings    []model.Meeting
}

// New creates an empty Dataset.
func New(loader Loader) *Dataset {
	return &Dataset{
		loader: loader,
		log:    logging.GetLogger(logging.App),
	}
}

// Load fetches every collection. Collections that fail to load keep their
// previous contents; the errors are joined.
func (d *Dataset) Load(ctx context.Context) error {
	return errors.Join(
		d.Invalidate(ctx, model.TableAssignments),
		d.Invalidate(ctx, model.TablePayments),
		d.Invalidate(ctx, model.TableMeetings),
	)
}

// Invalidate reloads the collection backing table. Unknown tables are
// ignored.
func (d *Dataset) Invalidate(ctx context.Context, table string) error {
	switch table {
	case model.TableAssignments:
		rows, err := d.loader.ListAssignments(ctx)
		if err != nil {
			return fmt.Errorf("loading assignments: %w", err)
		}
		d.mu.Lock()
		d.assignments = rows
		d.mu.Unlock()
	case model.TablePayments:
		rows, err := d.loader.ListPayments(ctx)
		if err != nil {
			return fmt.Errorf("loading payments: %w", err)
		}
		d.mu.Lock()
		d.payments = rows
		d.mu.Unlock()
	case model.TableMeetings:
		rows, err := d.loader.ListMeetings(ctx)
		if err != nil {
			return fmt.Errorf("loading meetings: %w", err)
		}
		d.mu.Lock()
		d.meetings = rows
		d.mu.Unlock()
	default:
		return nil
	}

	d.log.Printf("[DEBUG] Reloaded %s\n", table)
	return nil
}

// Assignments returns a copy of the cached assignments.
func (d *Dataset) Assignments() []model.Assignment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.Assignment(nil), d.assignments...)
}

// Payments returns a copy of the cached payments.
func (d *Dataset) Payments() []model.Payment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.Payment(nil), d.payments...)
}

// Meetings returns a copy of the cached meetings.
func (d *Dataset) Meetings() []model.Meeting {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.Meeting(nil), d.meetings...)
}
