// Package client wires configuration into the full service graph.
package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/TheMichaelB/remarksync/internal/config"
	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/services/convert"
	"github.com/TheMichaelB/remarksync/internal/services/docs"
	"github.com/TheMichaelB/remarksync/internal/services/sync"
	"github.com/TheMichaelB/remarksync/internal/state"
	"github.com/TheMichaelB/remarksync/internal/storage"
	"github.com/TheMichaelB/remarksync/internal/transport"
)

// DefaultProfile names the snapshot profile used when none is given.
const DefaultProfile = "default"

// Client provides the high-level API for device operations.
type Client struct {
	Sync    *sync.Service
	Docs    *docs.Service
	Convert *convert.Converter
	State   StateManager

	config    *config.Config
	logger    *events.Logger
	transport transport.Transport
	storage   storage.BlobStore
	snapshots state.Store
}

// StateManager exposes snapshot management operations.
type StateManager interface {
	ListProfiles() ([]string, error)
	LoadSnapshot(profile string) (*models.SyncSnapshot, error)
	Reset(profile string) error
}

// New creates a client from configuration. The transport is created
// but not connected; call Connect before any device operation.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	sshClient := transport.NewSSHClient(&cfg.Device, logger)
	return newWithTransport(cfg, sshClient, logger)
}

// NewWithTransport creates a client over a caller-supplied transport.
// Used by tests and tools that talk to something other than a live
// device.
func NewWithTransport(cfg *config.Config, trans transport.Transport, logger *events.Logger) (*Client, error) {
	return newWithTransport(cfg, trans, logger)
}

func newWithTransport(cfg *config.Config, trans transport.Transport, logger *events.Logger) (*Client, error) {
	snapshots, err := newStateStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create state store: %w", err)
	}

	blobStore, err := storage.NewLocalStore(cfg.Sync.LocalDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create blob store: %w", err)
	}

	converter := convert.NewConverter(&cfg.Convert, logger)
	docsService := docs.NewService(trans, cfg.Device.DocumentDir, logger)

	engineCfg := &sync.EngineConfig{
		RemoteDir:    cfg.Sync.RemoteDir,
		ConvertToPDF: cfg.Sync.ConvertToPDF,
		PDFOutputDir: cfg.Sync.PDFOutputDir,
	}
	syncService := sync.NewService(
		trans,
		blobStore,
		converter,
		docsService,
		snapshots,
		DefaultProfile,
		cfg.Sync.LocalDir,
		cfg.Sync.IgnorePatterns,
		engineCfg,
		logger,
	)

	return &Client{
		Sync:      syncService,
		Docs:      docsService,
		Convert:   converter,
		State:     &stateManager{store: snapshots},
		config:    cfg,
		logger:    logger,
		transport: trans,
		storage:   blobStore,
		snapshots: snapshots,
	}, nil
}

func newStateStore(cfg *config.Config, logger *events.Logger) (state.Store, error) {
	switch cfg.Storage.StateBackend {
	case "sqlite":
		return state.NewSQLiteStore(filepath.Join(cfg.Storage.StateDir, "state.db"), logger)
	case "", "json":
		return state.NewJSONStore(cfg.Storage.StateDir, logger)
	default:
		return nil, fmt.Errorf("unknown state backend: %s", cfg.Storage.StateBackend)
	}
}

// Connect establishes the device connection.
func (c *Client) Connect(ctx context.Context) error {
	type connector interface {
		Connect(ctx context.Context) error
	}
	if conn, ok := c.transport.(connector); ok {
		return conn.Connect(ctx)
	}
	return nil
}

// Close releases the transport and state store.
func (c *Client) Close() error {
	var errs []error
	if err := c.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.snapshots.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *config.Config { return c.config }

// stateManager implements StateManager.
type stateManager struct {
	store state.Store
}

func (sm *stateManager) ListProfiles() ([]string, error) {
	return sm.store.List()
}

func (sm *stateManager) LoadSnapshot(profile string) (*models.SyncSnapshot, error) {
	return sm.store.Load(profile)
}

func (sm *stateManager) Reset(profile string) error {
	return sm.store.Reset(profile)
}
