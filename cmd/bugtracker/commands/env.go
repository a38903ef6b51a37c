package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/credential"
	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/session"
	"github.com/nhle/bugtracker/internal/store"
)

var errNotLoggedIn = errors.New("not logged in; run 'bugtracker login' first")

// env bundles what every command needs: config, local store, keyring and
// API client.
type env struct {
	cfg    *model.AppConfig
	store  *store.SQLiteStore
	creds  *credential.Store
	client *api.Client
}

func openEnv() (*env, error) {
	cfg := appConfig

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	creds, err := credential.Open(model.ConfigDir())
	if err != nil {
		s.Close()
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL, "",
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithLogger(log.StandardLogger()),
	)

	return &env{cfg: cfg, store: s, creds: creds, client: client}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close store")
	}
}

// authenticate loads the stored token into the API client.
func (e *env) authenticate() (*session.Session, error) {
	token, err := e.creds.Token()
	if errors.Is(err, credential.ErrNotFound) {
		return nil, errNotLoggedIn
	}
	if err != nil {
		return nil, err
	}

	sess, err := session.Restore(token, time.Now())
	if errors.Is(err, session.ErrExpired) {
		return nil, fmt.Errorf("session expired; run 'bugtracker login' again")
	}
	if err != nil {
		return nil, err
	}
	if sess.User.Email == "" {
		if email, err := e.creds.Email(); err == nil {
			sess.User = session.UserFromEmail(sess.User.ID, email)
		}
	}

	e.client.SetToken(token)
	return sess, nil
}

// projectByKey resolves a project key, or returns nil for an empty key.
func (e *env) projectByKey(key string) (*model.Project, error) {
	if key == "" {
		return nil, nil
	}
	p, err := e.store.GetProjectByKey(context.Background(), model.NormalizeKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("unknown project %s", model.NormalizeKey(key))
	}
	return p, err
}
