package notify

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/nhle/deskalert/internal/model"
)

type memSubs struct {
	mu   sync.Mutex
	subs []model.PushSubscription
}

func (m *memSubs) GetPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PushSubscription(nil), m.subs...), nil
}

func (m *memSubs) DeletePushSubscription(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.subs[:0]
	for _, s := range m.subs {
		if s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	m.subs = kept
	return nil
}

func newSubscription(t *testing.T, endpoint string) model.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("generating auth: %v", err)
	}
	return model.PushSubscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newVAPID(t *testing.T) VAPID {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}
	return VAPID{Subscriber: "ops@example.com", PublicKey: pub, PrivateKey: priv}
}

func TestWebPushDeletesGoneSubscriptions(t *testing.T) {
	var (
		mu   sync.Mutex
		hits = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	subs := &memSubs{subs: []model.PushSubscription{
		newSubscription(t, srv.URL+"/live"),
		newSubscription(t, srv.URL+"/gone"),
	}}
	w := NewWebPushNotifier(subs, newVAPID(t), srv.Client())

	res, err := w.Notify(context.Background(), Message{Title: "Meeting", Body: "Standup in 10 minutes", Tag: "meeting_reminder-5"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if res != Delivered {
		t.Errorf("res = %v, want Delivered", res)
	}

	if hits["/live"] != 1 || hits["/gone"] != 1 {
		t.Errorf("hits = %v, want one per endpoint", hits)
	}
	remaining, _ := subs.GetPushSubscriptions(context.Background())
	if len(remaining) != 1 || remaining[0].Endpoint != srv.URL+"/live" {
		t.Errorf("remaining subscriptions = %+v, want only /live", remaining)
	}
}

func TestWebPushAllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	subs := &memSubs{subs: []model.PushSubscription{newSubscription(t, srv.URL+"/a")}}
	w := NewWebPushNotifier(subs, newVAPID(t), srv.Client())

	if _, err := w.Notify(context.Background(), Message{Title: "x"}); err == nil {
		t.Error("expected error when every push fails")
	}
}

func TestWebPushNoSubscribers(t *testing.T) {
	w := NewWebPushNotifier(&memSubs{}, VAPID{}, nil)
	if _, err := w.Notify(context.Background(), Message{Title: "x"}); err != nil {
		t.Errorf("Notify with no subscribers: %v", err)
	}
}
