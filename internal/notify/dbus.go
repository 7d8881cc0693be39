package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/nhle/deskalert/internal/logging"
)

const (
	notifyObj            = "org.freedesktop.Notifications"
	notifyPath           = "/org/freedesktop/Notifications"
	notifyMethod         = "org.freedesktop.Notifications.Notify"
	notifyCapsMethod     = "org.freedesktop.Notifications.GetCapabilities"
	defaultCoalesceAfter = 5 * time.Second

	// defaultOnScreen is how long a posted notification is assumed to be
	// replaceable. Older tag entries are forgotten.
	defaultOnScreen = 10 * time.Minute
)

// AppName is sent as the application name with every desktop notification.
const AppName = "deskalert"

// caller is the subset of dbus.BusObject used here.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

type shown struct {
	id   uint32
	body string
	at   time.Time
}

// DBusNotifier posts freedesktop desktop notifications on the session bus.
type DBusNotifier struct {
	obj      caller
	log      *log.Logger
	now      func() time.Time
	coalesce time.Duration
	onScreen time.Duration

	mu    sync.Mutex
	byTag map[string]shown
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier() (*DBusNotifier, error) {
	bus, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return newDBusNotifier(bus.Object(notifyObj, notifyPath), time.Now), nil
}

func newDBusNotifier(obj caller, now func() time.Time) *DBusNotifier {
	return &DBusNotifier{
		obj:      obj,
		log:      logging.GetLogger(logging.Notify),
		now:      now,
		coalesce: defaultCoalesceAfter,
		onScreen: defaultOnScreen,
		byTag:    make(map[string]shown),
	}
}

// Notify posts msg. A message whose tag is already showing replaces that
// notification; if the body is also unchanged and it was shown within the
// coalesce window, nothing is posted and Duplicate is returned.
func (d *DBusNotifier) Notify(ctx context.Context, msg Message) (Result, error) {
	now := d.now()

	d.mu.Lock()
	prev, hasPrev := d.byTag[msg.Tag]
	d.mu.Unlock()
	if hasPrev && now.Sub(prev.at) > d.onScreen {
		hasPrev = false
	}
	if msg.Tag != "" && hasPrev && prev.body == msg.Body && now.Sub(prev.at) < d.coalesce {
		d.log.Printf("[DEBUG] Skipping duplicate notification %q\n", msg.Tag)
		return Duplicate, nil
	}

	var replaces uint32
	if hasPrev {
		replaces = prev.id
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(msg.Urgency)),
	}
	timeout := int32(-1)
	if msg.RequireInteraction {
		hints["resident"] = dbus.MakeVariant(true)
		timeout = 0
	}

	res := d.obj.CallWithContext(
		ctx,
		notifyMethod,
		0,
		AppName,
		replaces,
		"",
		msg.Title,
		msg.Body,
		[]string{},
		hints,
		timeout,
	)
	if res.Err != nil {
		return Delivered, fmt.Errorf("posting notification %q: %w", msg.Title, res.Err)
	}

	var id uint32
	if err := res.Store(&id); err != nil {
		return Delivered, fmt.Errorf("reading notification id: %w", err)
	}

	d.mu.Lock()
	d.prune(now)
	if msg.Tag != "" {
		d.byTag[msg.Tag] = shown{id: id, body: msg.Body, at: now}
	}
	d.mu.Unlock()

	return Delivered, nil
}

// prune drops tags whose notification is no longer on screen. Callers
// hold d.mu.
func (d *DBusNotifier) prune(now time.Time) {
	for tag, s := range d.byTag {
		if now.Sub(s.at) > d.onScreen {
			delete(d.byTag, tag)
		}
	}
}

// RequestPermission reports whether a notification server answers on the
// session bus. Desktop notifications need no user grant, so a reachable
// server counts as granted.
func (d *DBusNotifier) RequestPermission(ctx context.Context) (bool, error) {
	var caps []string
	res := d.obj.CallWithContext(ctx, notifyCapsMethod, 0)
	if res.Err != nil {
		return false, fmt.Errorf("querying notification server: %w", res.Err)
	}
	if err := res.Store(&caps); err != nil {
		return false, fmt.Errorf("reading server capabilities: %w", err)
	}
	d.log.Printf("[DEBUG] Notification server capabilities: %v\n", caps)
	return true, nil
}
