// Command docchat uploads a document and chats about it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/docchat/internal/adapters/driven/backend/rest"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driven/transport/ws"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	cli.SetVersion(version)
	cli.SetSettingsService(services.NewSettingsService(configStore))
	cli.SetSessionFactory(newSession)
	cli.SetReaderFactory(newReader)

	return cli.ExecuteContext(ctx)
}

// session closes the key-value store along with the controller.
type session struct {
	*services.SessionController
	kv driven.KeyValueStore
}

func (s *session) Close() error {
	return errors.Join(s.SessionController.Close(), s.kv.Close())
}

// newSession wires a session controller for settings.
func newSession(_ context.Context, settings domain.Settings) (driving.SessionService, error) {
	kv, err := openKeyValueStore(settings)
	if err != nil {
		return nil, err
	}

	api, err := rest.NewClient(rest.Config{BaseURL: settings.ServerURL})
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	dialer, err := ws.NewDialer(settings.ServerURL)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("creating connection dialer: %w", err)
	}

	logger.Debug("session: server=%s store=%s", settings.ServerURL, settings.Store)
	ctrl := services.NewSessionController(services.NewPersistentStore(kv), api, dialer, settings)
	return &session{SessionController: ctrl, kv: kv}, nil
}

// newReader opens persisted state without starting a session.
func newReader(settings domain.Settings) (driving.SessionReader, func() error, error) {
	kv, err := openKeyValueStore(settings)
	if err != nil {
		return nil, nil, err
	}
	return services.NewPersistentStore(kv), kv.Close, nil
}

// openKeyValueStore opens the configured store backend.
func openKeyValueStore(settings domain.Settings) (driven.KeyValueStore, error) {
	dir, err := dataDir(settings)
	if err != nil {
		return nil, err
	}

	switch settings.Store {
	case domain.StoreBackendMemory:
		return memory.NewKeyValueStore(), nil

	case domain.StoreBackendFile:
		store, err := jsonfile.NewStore(dir, jsonfile.WithReloadHook(func() {
			logger.Debug("session store reloaded after external change")
		}))
		if err != nil {
			return nil, fmt.Errorf("opening session file: %w", err)
		}
		return store, nil

	default:
		store, err := sqlite.NewStore(dir)
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		return store.KeyValueStore(), nil
	}
}

// dataDir returns the configured data directory or ~/.docchat/data.
func dataDir(settings domain.Settings) (string, error) {
	if settings.DataDir != "" {
		return settings.DataDir, nil
	}
	base, err := file.DefaultConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	return filepath.Join(base, "data"), nil
}
