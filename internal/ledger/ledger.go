// Package ledger records which reminders have already been surfaced so the
// scanners do not repeat them on every tick.
//
// The ledger is a single JSON object (reminder key to unix milliseconds)
// kept under one storage key. A record blocks its key for the cooldown
// window; records older than the retention window are purged on write.
// Unreadable or missing data yields an empty ledger, so reminders show
// rather than being suppressed forever.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/store"
)

// StorageKey is the key the serialized ledger lives under.
const StorageKey = "deskalert.shown_reminders"

// Default windows.
const (
	DefaultCooldown  = 4 * time.Hour
	DefaultRetention = 24 * time.Hour
)

// KV is the persistence the ledger needs. store.SQLiteStore implements it.
// Get must return an error wrapping store.ErrNotFound for absent keys.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// Options configures a Ledger. Zero values select the defaults.
type Options struct {
	Cooldown  time.Duration
	Retention time.Duration
	Now       func() time.Time
}

// Ledger is a time-windowed record of shown reminder keys.
type Ledger struct {
	kv        KV
	cooldown  time.Duration
	retention time.Duration
	now       func() time.Time
	log       *log.Logger

	// mu serializes read-modify-write cycles within the process.
	// There is no cross-process coordination.
	mu sync.Mutex
}

// New creates a Ledger over kv.
func New(kv KV, opts Options) *Ledger {
	l := &Ledger{
		kv:        kv,
		cooldown:  opts.Cooldown,
		retention: opts.Retention,
		now:       opts.Now,
		log:       logging.GetLogger(logging.Ledger),
	}
	if l.cooldown <= 0 {
		l.cooldown = DefaultCooldown
	}
	if l.retention <= 0 {
		l.retention = DefaultRetention
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// ShouldShow reports whether key may be surfaced now. It returns false
// only if key was marked less than the cooldown ago.
func (l *Ledger) ShouldShow(ctx context.Context, key model.ReminderKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load(ctx)
	ts, ok := records[string(key)]
	if !ok {
		return true
	}
	return l.now().Sub(time.UnixMilli(ts)) >= l.cooldown
}

// MarkShown records key as shown now and purges expired records.
func (l *Ledger) MarkShown(ctx context.Context, key model.ReminderKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	records := l.load(ctx)
	records[string(key)] = now.UnixMilli()

	for k, ts := range records {
		if now.Sub(time.UnixMilli(ts)) > l.retention {
			delete(records, k)
		}
	}

	buf, err := json.Marshal(records)
	if err != nil {
		l.log.Printf("[ERROR] Cannot serialize ledger: %s\n", err.Error())
		return
	}
	if err := l.kv.Put(ctx, StorageKey, string(buf)); err != nil {
		l.log.Printf("[ERROR] Cannot persist ledger: %s\n", err.Error())
	}
}

// Len returns the number of records currently stored.
func (l *Ledger) Len(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.load(ctx))
}

// load reads the stored mapping. Any failure degrades to an empty map.
func (l *Ledger) load(ctx context.Context) map[string]int64 {
	records := make(map[string]int64)

	raw, err := l.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.log.Printf("[WARN] Cannot read ledger, treating as empty: %s\n", err.Error())
		}
		return records
	}

	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		l.log.Printf("[WARN] Ledger data is corrupt, treating as empty: %s\n", err.Error())
		return make(map[string]int64)
	}
	if records == nil {
		records = make(map[string]int64)
	}
	return records
}
