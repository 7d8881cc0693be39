package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

type recordedCall struct {
	method string
	args   []interface{}
}

type fakeBus struct {
	calls  []recordedCall
	nextID uint32
	err    error
}

func (f *fakeBus) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, recordedCall{method: method, args: args})
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	if method == notifyCapsMethod {
		return &dbus.Call{Body: []interface{}{[]string{"body", "actions"}}}
	}
	f.nextID++
	return &dbus.Call{Body: []interface{}{f.nextID}}
}

func TestDBusNotifyCoalescesByTag(t *testing.T) {
	bus := &fakeBus{}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d := newDBusNotifier(bus, func() time.Time { return now })
	ctx := context.Background()

	msg := Message{Title: "Due today", Body: "Report", Tag: "assignment_reminder-1", Urgency: UrgencyNormal}

	if res, err := d.Notify(ctx, msg); err != nil || res != Delivered {
		t.Fatalf("first Notify = %v, %v", res, err)
	}
	if res, _ := d.Notify(ctx, msg); res != Duplicate {
		t.Errorf("identical Notify within window = %v, want Duplicate", res)
	}
	if len(bus.calls) != 1 {
		t.Fatalf("bus calls = %d, want 1", len(bus.calls))
	}

	msg.Body = "Report (updated)"
	if res, _ := d.Notify(ctx, msg); res != Delivered {
		t.Errorf("changed body Notify = %v, want Delivered", res)
	}
	replaces := bus.calls[1].args[1].(uint32)
	if replaces != 1 {
		t.Errorf("replaces_id = %d, want 1", replaces)
	}

	now = now.Add(time.Minute)
	if res, _ := d.Notify(ctx, msg); res != Delivered {
		t.Errorf("Notify after window = %v, want Delivered", res)
	}
}

func TestDBusForgetsTagsNoLongerOnScreen(t *testing.T) {
	bus := &fakeBus{}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d := newDBusNotifier(bus, func() time.Time { return now })
	ctx := context.Background()

	for _, tag := range []string{"message-1", "message-2", "message-3"} {
		if _, err := d.Notify(ctx, Message{Title: "t", Body: "b", Tag: tag}); err != nil {
			t.Fatalf("Notify(%s): %v", tag, err)
		}
	}

	now = now.Add(defaultOnScreen + time.Second)
	if _, err := d.Notify(ctx, Message{Title: "t", Body: "b", Tag: "message-4"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(d.byTag) != 1 {
		t.Errorf("tracked tags = %d, want 1", len(d.byTag))
	}

	if _, err := d.Notify(ctx, Message{Title: "t", Body: "b", Tag: "message-1"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	last := bus.calls[len(bus.calls)-1]
	if replaces := last.args[1].(uint32); replaces != 0 {
		t.Errorf("replaces_id for expired tag = %d, want 0", replaces)
	}
}

func TestDBusNotifyHints(t *testing.T) {
	bus := &fakeBus{}
	d := newDBusNotifier(bus, time.Now)

	_, err := d.Notify(context.Background(), Message{
		Title:              "Payment due",
		Body:               "Rent due today",
		Tag:                "payment_reminder-3",
		Urgency:            UrgencyCritical,
		RequireInteraction: true,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	args := bus.calls[0].args
	if args[0] != AppName {
		t.Errorf("app name = %v", args[0])
	}
	hints := args[6].(map[string]dbus.Variant)
	if u := hints["urgency"].Value().(byte); u != 2 {
		t.Errorf("urgency hint = %d, want 2", u)
	}
	if _, ok := hints["resident"]; !ok {
		t.Error("missing resident hint")
	}
	if timeout := args[7].(int32); timeout != 0 {
		t.Errorf("expire timeout = %d, want 0", timeout)
	}
}

func TestDBusNotifyError(t *testing.T) {
	d := newDBusNotifier(&fakeBus{err: errors.New("no server")}, time.Now)
	if _, err := d.Notify(context.Background(), Message{Title: "x", Tag: "t"}); err == nil {
		t.Error("expected error")
	}
	if ok, err := d.RequestPermission(context.Background()); ok || err == nil {
		t.Errorf("RequestPermission = %v, %v; want false with error", ok, err)
	}
}

func TestDBusRequestPermission(t *testing.T) {
	d := newDBusNotifier(&fakeBus{}, time.Now)
	ok, err := d.RequestPermission(context.Background())
	if err != nil || !ok {
		t.Errorf("RequestPermission = %v, %v; want true", ok, err)
	}
}
