// Package sqlite is the single-file store backend for self-hosted
// deployments. It uses the pure-Go sqlite driver, so builds stay CGO-free.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/invitera/invitera/backend-go/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS invitations (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	published INTEGER NOT NULL DEFAULT 0,
	share_slug TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_slug ON invitations(share_slug) WHERE share_slug IS NOT NULL AND share_slug != '';
CREATE TABLE IF NOT EXISTS members (
	invitation_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	added_at DATETIME NOT NULL,
	PRIMARY KEY (invitation_id, user_id)
);
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	invitation_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	document BLOB NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_invitation ON snapshots(invitation_id, version);
`

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens (or creates) the database file and ensures the schema.
func NewStore(dataSourceName string) (store.Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) CreateUser(ctx context.Context, u *store.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *sqliteStore) GetUser(ctx context.Context, id string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, role, created_at FROM users WHERE id = ?`, id))
}

func (s *sqliteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, role, created_at FROM users WHERE email = ?`, email))
}

func (s *sqliteStore) CreateInvitation(ctx context.Context, inv *store.Invitation) error {
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (id, owner_id, title, description, category, published, share_slug, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OwnerID, inv.Title, inv.Description, inv.Category, inv.Published, inv.ShareSlug, inv.CreatedAt, inv.UpdatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *sqliteStore) GetInvitation(ctx context.Context, id string) (*store.Invitation, error) {
	return scanInvitation(s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, category, published, share_slug, created_at, updated_at
		 FROM invitations WHERE id = ?`, id))
}

func (s *sqliteStore) GetInvitationBySlug(ctx context.Context, slug string) (*store.Invitation, error) {
	return scanInvitation(s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, category, published, share_slug, created_at, updated_at
		 FROM invitations WHERE share_slug = ?`, slug))
}

func (s *sqliteStore) UpdateInvitation(ctx context.Context, inv *store.Invitation) error {
	inv.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET title = ?, description = ?, category = ?, published = ?, share_slug = ?, updated_at = ?
		 WHERE id = ?`,
		inv.Title, inv.Description, inv.Category, inv.Published, inv.ShareSlug, inv.UpdatedAt, inv.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqliteStore) DeleteInvitation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	s.db.ExecContext(ctx, `DELETE FROM members WHERE invitation_id = ?`, id)
	s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE invitation_id = ?`, id)
	return nil
}

func (s *sqliteStore) ListInvitationsByUser(ctx context.Context, userID string) ([]*store.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT i.id, i.owner_id, i.title, i.description, i.category, i.published, i.share_slug, i.created_at, i.updated_at
		 FROM invitations i
		 LEFT JOIN members m ON m.invitation_id = i.id
		 WHERE i.owner_id = ? OR m.user_id = ?
		 ORDER BY i.created_at DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	return collectInvitations(rows)
}

func (s *sqliteStore) ListPublished(ctx context.Context, f store.ListFilter) ([]*store.Invitation, error) {
	query := `SELECT id, owner_id, title, description, category, published, share_slug, created_at, updated_at
		 FROM invitations WHERE published = 1`
	args := []any{}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectInvitations(rows)
}

func (s *sqliteStore) AddMember(ctx context.Context, m *store.Member) error {
	if m.AddedAt.IsZero() {
		m.AddedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (invitation_id, user_id, role, added_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (invitation_id, user_id) DO UPDATE SET role = excluded.role`,
		m.InvitationID, m.UserID, m.Role, m.AddedAt)
	return err
}

func (s *sqliteStore) GetMember(ctx context.Context, invitationID, userID string) (*store.Member, error) {
	var m store.Member
	err := s.db.QueryRowContext(ctx,
		`SELECT invitation_id, user_id, role, added_at FROM members WHERE invitation_id = ? AND user_id = ?`,
		invitationID, userID).Scan(&m.InvitationID, &m.UserID, &m.Role, &m.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *sqliteStore) ListMembers(ctx context.Context, invitationID string) ([]*store.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT invitation_id, user_id, role, added_at FROM members WHERE invitation_id = ? ORDER BY added_at`,
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

func (s *sqliteStore) RemoveMember(ctx context.Context, invitationID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM members WHERE invitation_id = ? AND user_id = ?`, invitationID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqliteStore) CreateSnapshot(ctx context.Context, snap *store.Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, invitation_id, version, document, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.InvitationID, snap.Version, snap.Document, snap.CreatedAt)
	return err
}

func (s *sqliteStore) LatestSnapshot(ctx context.Context, invitationID string) (*store.Snapshot, error) {
	var snap store.Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, invitation_id, version, document, created_at FROM snapshots
		 WHERE invitation_id = ? ORDER BY version DESC LIMIT 1`, invitationID).
		Scan(&snap.ID, &snap.InvitationID, &snap.Version, &snap.Document, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanInvitation(row *sql.Row) (*store.Invitation, error) {
	var inv store.Invitation
	var slug sql.NullString
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.Title, &inv.Description, &inv.Category,
		&inv.Published, &slug, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	inv.ShareSlug = slug.String
	return &inv, nil
}

func collectInvitations(rows *sql.Rows) ([]*store.Invitation, error) {
	defer rows.Close()
	var out []*store.Invitation
	for rows.Next() {
		var inv store.Invitation
		var slug sql.NullString
		if err := rows.Scan(&inv.ID, &inv.OwnerID, &inv.Title, &inv.Description, &inv.Category,
			&inv.Published, &slug, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		inv.ShareSlug = slug.String
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
