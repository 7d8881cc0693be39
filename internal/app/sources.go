package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nhle/deskalert/internal/backend"
	"github.com/nhle/deskalert/internal/credential"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/notify"
	"github.com/nhle/deskalert/internal/permission"
	"github.com/nhle/deskalert/internal/realtime"
	"github.com/nhle/deskalert/internal/store"
)

// backendDSN returns the configured DSN, falling back to the keyring.
func backendDSN(cfg *model.AppConfig) (string, error) {
	dsn, err := credential.Resolve(cfg.Backend.DSN, credential.KeyBackendDSN)
	if err != nil {
		return "", fmt.Errorf("loading backend DSN: %w", err)
	}
	if dsn == "" {
		return "", fmt.Errorf("no backend DSN: set backend.dsn, DESKALERT_BACKEND_DSN or the %q keyring entry",
			credential.KeyBackendDSN)
	}
	return dsn, nil
}

// openBackend connects to the hosted database for the configured user.
func openBackend(ctx context.Context, cfg *model.AppConfig) (*backend.Postgres, error) {
	if cfg.UserID == "" {
		return nil, fmt.Errorf("user_id is not configured")
	}
	dsn, err := backendDSN(cfg)
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, dsn, cfg.UserID)
}

// buildNotifier creates the enabled OS notification sinks. A sink that
// cannot start is skipped with a warning. The prompter asks the desktop
// notification server when one is available.
func (s *Service) buildNotifier(st *store.SQLiteStore) (notify.Notifier, permission.Prompter) {
	var (
		sinks    notify.Multi
		prompter permission.Prompter
	)

	if s.cfg.Notifier.DBus {
		d, err := notify.NewDBusNotifier()
		if err != nil {
			s.log.Printf("[WARN] Desktop notifications unavailable: %s\n", err.Error())
		} else {
			sinks = append(sinks, d)
			prompter = d
		}
	}

	if wp := s.cfg.Notifier.WebPush; wp.Enabled {
		priv, err := credential.Resolve(wp.PrivateKey, credential.KeyVAPIDPrivateKey)
		switch {
		case err != nil:
			s.log.Printf("[WARN] Web push disabled, cannot load VAPID key: %s\n", err.Error())
		case priv == "" || wp.PublicKey == "":
			s.log.Println("[WARN] Web push disabled, VAPID keys are not configured")
		default:
			sinks = append(sinks, notify.NewWebPushNotifier(st, notify.VAPID{
				Subscriber: wp.Subscriber,
				PublicKey:  wp.PublicKey,
				PrivateKey: priv,
			}, nil))
		}
	}

	if prompter == nil {
		prompter = permission.Always(len(sinks) > 0)
	}
	return sinks, prompter
}

// buildFeed creates the configured realtime feed, or nil when realtime
// is disabled.
func (s *Service) buildFeed(cfg *model.AppConfig) (realtime.Feed, error) {
	switch cfg.Realtime.Driver {
	case model.RealtimeNone:
		return nil, nil
	case model.RealtimeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Realtime.RedisAddr,
			Password: cfg.Realtime.RedisPassword,
			DB:       cfg.Realtime.RedisDB,
		})
		s.closers = append(s.closers, client.Close)
		return realtime.NewRedisFeed(client, cfg.UserID), nil
	default:
		dsn, err := backendDSN(cfg)
		if err != nil {
			return nil, err
		}
		return realtime.NewPostgresFeed(dsn, cfg.UserID), nil
	}
}
