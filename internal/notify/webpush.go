package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/model"
)

const pushTTL = 60

// Subscriptions is the storage the web push sink reads subscribers from.
type Subscriptions interface {
	GetPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// VAPID is the application server identity for web push.
type VAPID struct {
	Subscriber string
	PublicKey  string
	PrivateKey string
}

// WebPushNotifier sends each message to every stored browser subscription.
type WebPushNotifier struct {
	subs   Subscriptions
	vapid  VAPID
	client webpush.HTTPClient
	log    *log.Logger
}

// NewWebPushNotifier creates a web push sink. A nil client uses the
// library's default HTTP client.
func NewWebPushNotifier(subs Subscriptions, vapid VAPID, client webpush.HTTPClient) *WebPushNotifier {
	return &WebPushNotifier{
		subs:   subs,
		vapid:  vapid,
		client: client,
		log:    logging.GetLogger(logging.Notify),
	}
}

type pushPayload struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Tag                string `json:"tag,omitempty"`
	Urgency            string `json:"urgency"`
	RequireInteraction bool   `json:"requireInteraction"`
}

// Notify pushes msg to all subscribers. Subscriptions the push service
// reports as gone are deleted. With no subscribers the message counts as
// delivered; an error is returned only when every send failed.
func (w *WebPushNotifier) Notify(ctx context.Context, msg Message) (Result, error) {
	subs, err := w.subs.GetPushSubscriptions(ctx)
	if err != nil {
		return Delivered, fmt.Errorf("loading push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return Delivered, nil
	}

	payload, err := json.Marshal(pushPayload{
		Title:              msg.Title,
		Body:               msg.Body,
		Tag:                msg.Tag,
		Urgency:            msg.Urgency.String(),
		RequireInteraction: msg.RequireInteraction,
	})
	if err != nil {
		return Delivered, fmt.Errorf("encoding push payload: %w", err)
	}

	opts := &webpush.Options{
		HTTPClient:      w.client,
		Subscriber:      w.vapid.Subscriber,
		VAPIDPublicKey:  w.vapid.PublicKey,
		VAPIDPrivateKey: w.vapid.PrivateKey,
		TTL:             pushTTL,
		Urgency:         pushUrgency(msg.Urgency),
	}

	var errs []error
	for _, sub := range subs {
		if err := w.send(ctx, payload, sub, opts); err != nil {
			w.log.Printf("[WARN] Failed to push to %s: %s\n", sub.Endpoint, err.Error())
			errs = append(errs, err)
		}
	}

	if len(errs) == len(subs) {
		return Delivered, errors.Join(errs...)
	}
	return Delivered, nil
}

func (w *WebPushNotifier) send(ctx context.Context, payload []byte, sub model.PushSubscription, opts *webpush.Options) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, opts)
	if err != nil {
		return fmt.Errorf("sending push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		w.log.Printf("[INFO] Push subscription %s expired, removing\n", sub.Endpoint)
		if err := w.subs.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			return fmt.Errorf("deleting expired subscription: %w", err)
		}
		return fmt.Errorf("subscription gone (%d)", resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

func pushUrgency(u Urgency) webpush.Urgency {
	switch u {
	case UrgencyLow:
		return webpush.UrgencyLow
	case UrgencyCritical:
		return webpush.UrgencyHigh
	default:
		return webpush.UrgencyNormal
	}
}
