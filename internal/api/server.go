// Package api serves the local HTTP surface: health, metrics, the in-app
// notification list, notification settings and web push registration.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/metrics"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/store"
)

// Response is the JSON envelope every endpoint returns.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Store is the local persistence the API reads and writes.
type Store interface {
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	SavePushSubscription(ctx context.Context, sub model.PushSubscription) error
}

// Settings reads and updates the current user's notification settings.
type Settings interface {
	Current() model.Settings
	Update(ctx context.Context, s model.Settings) error
}

// Health reports runtime state for /healthz.
type Health func() map[string]interface{}

// Server is the local HTTP API.
type Server struct {
	router   *mux.Router
	web      *http.Server
	store    Store
	settings Settings
	vapidKey string
	health   Health
	log      *log.Logger
}

// NewServer builds the router. vapidPublicKey may be empty when web push
// is disabled.
func NewServer(addr string, st Store, settings Settings, m *metrics.Metrics, vapidPublicKey string, health Health) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		store:    st,
		settings: settings,
		vapidKey: vapidPublicKey,
		health:   health,
		log:      logging.GetLogger(logging.API),
	}

	s.router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/notifications", s.handleNotifications).Methods(http.MethodGet)
	s.router.HandleFunc("/api/notifications/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
	s.router.HandleFunc("/api/settings", s.handleGetSettings).Methods(http.MethodGet)
	s.router.HandleFunc("/api/settings", s.handlePutSettings).Methods(http.MethodPut)
	s.router.HandleFunc("/api/push/vapid", s.handleVAPID).Methods(http.MethodGet)
	s.router.HandleFunc("/api/push/subscribe", s.handleSubscribe).Methods(http.MethodPost)

	s.web = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Printf("[INFO] Local API is going online at %s\n", s.web.Addr)
	if err := s.web.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Println("[INFO] Local API has shut down")
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.web.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if s.health != nil {
		data = s.health()
	}
	s.sendJSON(w, http.StatusOK, Response{Status: "ok", Data: data})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.GetUnreadNotifications(r.Context())
	if err != nil {
		s.log.Printf("[ERROR] Cannot load notifications: %s\n", err.Error())
		s.sendError(w, http.StatusInternalServerError, "cannot load notifications")
		return
	}
	if items == nil {
		items = []model.Notification{}
	}
	s.sendJSON(w, http.StatusOK, Response{Status: "ok", Data: items})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.store.MarkNotificationRead(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "no such notification")
		return
	case err != nil:
		s.log.Printf("[ERROR] Cannot mark notification %s read: %s\n", id, err.Error())
		s.sendError(w, http.StatusInternalServerError, "cannot update notification")
		return
	}
	s.sendJSON(w, http.StatusOK, Response{Status: "ok"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, Response{Status: "ok", Data: s.settings.Current()})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var next model.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	merged := s.settings.Current()
	for k, v := range next {
		merged[k] = v
	}

	if err := s.settings.Update(r.Context(), merged); err != nil {
		s.log.Printf("[ERROR] Cannot save settings: %s\n", err.Error())
		s.sendError(w, http.StatusBadGateway, "cannot save settings")
		return
	}
	s.sendJSON(w, http.StatusOK, Response{Status: "ok", Data: merged})
}

func (s *Server) handleVAPID(w http.ResponseWriter, r *http.Request) {
	if s.vapidKey == "" {
		s.sendError(w, http.StatusNotFound, "web push is disabled")
		return
	}
	s.sendJSON(w, http.StatusOK, Response{
		Status: "ok",
		Data:   map[string]string{"publicKey": s.vapidKey},
	})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		s.sendError(w, http.StatusBadRequest, "invalid subscription")
		return
	}

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := s.store.SavePushSubscription(r.Context(), sub); err != nil {
		s.log.Printf("[ERROR] Cannot save push subscription: %s\n", err.Error())
		s.sendError(w, http.StatusInternalServerError, "cannot save subscription")
		return
	}
	s.sendJSON(w, http.StatusCreated, Response{Status: "ok"})
}

func (s *Server) sendError(w http.ResponseWriter, code int, msg string) {
	s.sendJSON(w, code, Response{Status: "error", Message: msg})
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, res Response) {
	buf, err := json.Marshal(res)
	if err != nil {
		s.log.Printf("[ERROR] Cannot serialize response %#v: %s\n", res, err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf) // nolint: errcheck
}
