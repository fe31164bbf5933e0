// Package store persists source connections in PostgreSQL. A source
// connection binds a source to the auth provider that brokers its
// credentials; creation is gated on provider/source compatibility.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/weft/pkg/analytics"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/logger"
	"github.com/ajitpratap0/weft/pkg/platform"
	"github.com/ajitpratap0/weft/pkg/platform/compat"
	"github.com/ajitpratap0/weft/pkg/wefterrors"
)

// Status is the lifecycle state of a source connection.
type Status string

const (
	// StatusPendingAuth means the connection exists but its credentials
	// have not yet been verified with the auth provider.
	StatusPendingAuth Status = "pending_auth"
	// StatusActive means credentials were fetched successfully.
	StatusActive Status = "active"
	// StatusError means the last credential fetch or sync failed.
	StatusError Status = "error"
)

// SourceConnection is a persisted binding of a source to an auth provider
// within an organization.
type SourceConnection struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Source         platform.Source
	AuthProvider   platform.AuthProvider
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateParams are the caller-supplied fields for a new connection.
type CreateParams struct {
	OrganizationID uuid.UUID
	Name           string
	Source         string
	AuthProvider   platform.AuthProvider
}

// db is the subset of pgxpool.Pool the store queries through.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed source connection repository.
type Store struct {
	pool   *pgxpool.Pool
	db     db
	events *analytics.BusinessEventTracker
	logger *zap.Logger
}

// New connects to PostgreSQL and returns a Store. The events tracker may
// be nil, in which case lifecycle events are not emitted.
func New(ctx context.Context, cfg config.DatabaseConfig, events *analytics.BusinessEventTracker) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConfig, "invalid database url")
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to create database pool")
	}

	return &Store{
		pool:   pool,
		db:     pool,
		events: events,
		logger: logger.Get().With(zap.String("component", "store")),
	}, nil
}

// Migrate creates the source_connections table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS source_connections (
			id UUID PRIMARY KEY,
			organization_id UUID NOT NULL,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			auth_provider TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_source_connections_org
			ON source_connections (organization_id);
	`)
	if err != nil {
		return wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to run migrations")
	}
	return nil
}

// ValidateCreate checks the create parameters against the platform catalog
// and the compatibility matrix. It is exposed so API handlers can reject
// bad requests before reaching the database.
func ValidateCreate(params CreateParams) error {
	if params.Name == "" {
		return wefterrors.New(wefterrors.ErrorTypeValidation, "connection name is required")
	}
	if params.OrganizationID == uuid.Nil {
		return wefterrors.New(wefterrors.ErrorTypeValidation, "organization id is required")
	}
	if !platform.KnownSource(params.Source) {
		return wefterrors.New(wefterrors.ErrorTypeValidation,
			fmt.Sprintf("unknown source %q", params.Source))
	}
	if !platform.KnownProvider(string(params.AuthProvider)) {
		return wefterrors.New(wefterrors.ErrorTypeValidation,
			fmt.Sprintf("unknown auth provider %q", params.AuthProvider))
	}
	if !compat.IsCompatible(params.Source, params.AuthProvider) {
		return wefterrors.New(wefterrors.ErrorTypeValidation,
			fmt.Sprintf("auth provider %s does not support source %s", params.AuthProvider, params.Source)).
			WithDetail("compatible_providers", compat.CompatibleProvidersFor(params.Source))
	}
	return nil
}

// Create inserts a new source connection in pending_auth state and emits
// a creation event.
func (s *Store) Create(ctx context.Context, headers analytics.RequestHeaders, params CreateParams) (*SourceConnection, error) {
	if err := ValidateCreate(params); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	conn := &SourceConnection{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		Source:         platform.Source(params.Source),
		AuthProvider:   params.AuthProvider,
		Status:         StatusPendingAuth,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO source_connections
			(id, organization_id, name, source, auth_provider, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		conn.ID, conn.OrganizationID, conn.Name,
		string(conn.Source), string(conn.AuthProvider), string(conn.Status),
		conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to insert source connection")
	}

	s.logger.Info("source connection created",
		zap.String("connection_id", conn.ID.String()),
		zap.String("source", string(conn.Source)),
		zap.String("auth_provider", string(conn.AuthProvider)))

	if s.events != nil {
		s.events.TrackSourceConnectionCreated(headers, conn.ID, string(conn.Source), string(conn.AuthProvider))
	}

	return conn, nil
}

// Get returns a connection by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*SourceConnection, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, organization_id, name, source, auth_provider, status, created_at, updated_at
		FROM source_connections WHERE id = $1`, id)

	conn, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wefterrors.New(wefterrors.ErrorTypeNotFound,
				fmt.Sprintf("source connection %s not found", id))
		}
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to query source connection")
	}
	return conn, nil
}

// List returns all connections for an organization, newest first.
func (s *Store) List(ctx context.Context, organizationID uuid.UUID) ([]*SourceConnection, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, organization_id, name, source, auth_provider, status, created_at, updated_at
		FROM source_connections WHERE organization_id = $1
		ORDER BY created_at DESC`, organizationID)
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to list source connections")
	}
	defer rows.Close()

	var conns []*SourceConnection
	for rows.Next() {
		conn, scanErr := scanConnection(rows)
		if scanErr != nil {
			return nil, wefterrors.Wrap(scanErr, wefterrors.ErrorTypeData, "failed to scan source connection")
		}
		conns = append(conns, conn)
	}
	if rows.Err() != nil {
		return nil, wefterrors.Wrap(rows.Err(), wefterrors.ErrorTypeConnection, "failed to iterate source connections")
	}
	return conns, nil
}

// UpdateStatus transitions a connection to a new lifecycle state.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if err := validateStatus(status); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE source_connections SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now().UTC())
	if err != nil {
		return wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to update source connection")
	}
	if tag.RowsAffected() == 0 {
		return wefterrors.New(wefterrors.ErrorTypeNotFound,
			fmt.Sprintf("source connection %s not found", id))
	}
	return nil
}

// Delete removes a connection.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM source_connections WHERE id = $1`, id)
	if err != nil {
		return wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to delete source connection")
	}
	if tag.RowsAffected() == 0 {
		return wefterrors.New(wefterrors.ErrorTypeNotFound,
			fmt.Sprintf("source connection %s not found", id))
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func validateStatus(status Status) error {
	switch status {
	case StatusPendingAuth, StatusActive, StatusError:
		return nil
	default:
		return wefterrors.New(wefterrors.ErrorTypeValidation,
			fmt.Sprintf("invalid connection status %q", status))
	}
}

func scanConnection(row pgx.Row) (*SourceConnection, error) {
	var conn SourceConnection
	var source, provider, status string
	if err := row.Scan(&conn.ID, &conn.OrganizationID, &conn.Name,
		&source, &provider, &status, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
		return nil, err
	}
	conn.Source = platform.Source(source)
	conn.AuthProvider = platform.AuthProvider(provider)
	conn.Status = Status(status)
	return &conn, nil
}
