// Package postgres is the store backend for hosted deployments, running on a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invitera/invitera/backend-go/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS invitations (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	published BOOLEAN NOT NULL DEFAULT FALSE,
	share_slug TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_slug ON invitations(share_slug) WHERE share_slug IS NOT NULL AND share_slug != '';
CREATE TABLE IF NOT EXISTS members (
	invitation_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (invitation_id, user_id)
);
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	invitation_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	document BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_invitation ON snapshots(invitation_id, version);
`

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore connects, verifies the connection, and ensures the schema.
func NewStore(ctx context.Context, databaseURL string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) CreateUser(ctx context.Context, u *store.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *pgStore) GetUser(ctx context.Context, id string) (*store.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, role, created_at FROM users WHERE id = $1`, id))
}

func (s *pgStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, role, created_at FROM users WHERE email = $1`, email))
}

func (s *pgStore) CreateInvitation(ctx context.Context, inv *store.Invitation) error {
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invitations (id, owner_id, title, description, category, published, share_slug, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`,
		inv.ID, inv.OwnerID, inv.Title, inv.Description, inv.Category, inv.Published, inv.ShareSlug, inv.CreatedAt, inv.UpdatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *pgStore) GetInvitation(ctx context.Context, id string) (*store.Invitation, error) {
	return scanInvitation(s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, description, category, published, COALESCE(share_slug, ''), created_at, updated_at
		 FROM invitations WHERE id = $1`, id))
}

func (s *pgStore) GetInvitationBySlug(ctx context.Context, slug string) (*store.Invitation, error) {
	return scanInvitation(s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, description, category, published, COALESCE(share_slug, ''), created_at, updated_at
		 FROM invitations WHERE share_slug = $1`, slug))
}

func (s *pgStore) UpdateInvitation(ctx context.Context, inv *store.Invitation) error {
	inv.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE invitations SET title = $1, description = $2, category = $3, published = $4, share_slug = NULLIF($5, ''), updated_at = $6
		 WHERE id = $7`,
		inv.Title, inv.Description, inv.Category, inv.Published, inv.ShareSlug, inv.UpdatedAt, inv.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *pgStore) DeleteInvitation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	s.pool.Exec(ctx, `DELETE FROM members WHERE invitation_id = $1`, id)
	s.pool.Exec(ctx, `DELETE FROM snapshots WHERE invitation_id = $1`, id)
	return nil
}

func (s *pgStore) ListInvitationsByUser(ctx context.Context, userID string) ([]*store.Invitation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT i.id, i.owner_id, i.title, i.description, i.category, i.published, COALESCE(i.share_slug, ''), i.created_at, i.updated_at
		 FROM invitations i
		 LEFT JOIN members m ON m.invitation_id = i.id
		 WHERE i.owner_id = $1 OR m.user_id = $1
		 ORDER BY i.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectInvitations(rows)
}

func (s *pgStore) ListPublished(ctx context.Context, f store.ListFilter) ([]*store.Invitation, error) {
	query := `SELECT id, owner_id, title, description, category, published, COALESCE(share_slug, ''), created_at, updated_at
		 FROM invitations WHERE published`
	args := []any{}
	if f.Category != "" {
		query += ` AND category = $1`
		args = append(args, f.Category)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectInvitations(rows)
}

func (s *pgStore) AddMember(ctx context.Context, m *store.Member) error {
	if m.AddedAt.IsZero() {
		m.AddedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO members (invitation_id, user_id, role, added_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (invitation_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.InvitationID, m.UserID, m.Role, m.AddedAt)
	return err
}

func (s *pgStore) GetMember(ctx context.Context, invitationID, userID string) (*store.Member, error) {
	var m store.Member
	err := s.pool.QueryRow(ctx,
		`SELECT invitation_id, user_id, role, added_at FROM members WHERE invitation_id = $1 AND user_id = $2`,
		invitationID, userID).Scan(&m.InvitationID, &m.UserID, &m.Role, &m.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *pgStore) ListMembers(ctx context.Context, invitationID string) ([]*store.Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT invitation_id, user_id, role, added_at FROM members WHERE invitation_id = $1 ORDER BY added_at`,
		invitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*store.Member
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.InvitationID, &m.UserID, &m.Role, &m.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *pgStore) RemoveMember(ctx context.Context, invitationID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM members WHERE invitation_id = $1 AND user_id = $2`, invitationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *pgStore) CreateSnapshot(ctx context.Context, snap *store.Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, invitation_id, version, document, created_at) VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.InvitationID, snap.Version, snap.Document, snap.CreatedAt)
	return err
}

func (s *pgStore) LatestSnapshot(ctx context.Context, invitationID string) (*store.Snapshot, error) {
	var snap store.Snapshot
	err := s.pool.QueryRow(ctx,
		`SELECT id, invitation_id, version, document, created_at FROM snapshots
		 WHERE invitation_id = $1 ORDER BY version DESC LIMIT 1`, invitationID).
		Scan(&snap.ID, &snap.InvitationID, &snap.Version, &snap.Document, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanInvitation(row pgx.Row) (*store.Invitation, error) {
	var inv store.Invitation
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.Title, &inv.Description, &inv.Category,
		&inv.Published, &inv.ShareSlug, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func collectInvitations(rows pgx.Rows) ([]*store.Invitation, error) {
	defer rows.Close()
	var out []*store.Invitation
	for rows.Next() {
		var inv store.Invitation
		if err := rows.Scan(&inv.ID, &inv.OwnerID, &inv.Title, &inv.Description, &inv.Category,
			&inv.Published, &inv.ShareSlug, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
