package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique-constraint violations, e.g. a
	// duplicate email at registration.
	ErrConflict = errors.New("already exists")
)

// User is a registered account. Role is the account-level role fed into the
// editor capability oracle: guest, user, creator or admin.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Invitation is one invitation project: a deck of slides owned by a creator,
// optionally published to the marketplace under a share slug.
type Invitation struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Published   bool      `json:"published"`
	ShareSlug   string    `json:"shareSlug,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Member grants a user a role on one invitation. The owner is always an
// admin member; invited collaborators get creator or user.
type Member struct {
	InvitationID string    `json:"invitationId"`
	UserID       string    `json:"userId"`
	Role         string    `json:"role"`
	AddedAt      time.Time `json:"addedAt"`
}

// Snapshot is one persisted version of an invitation's editor document.
type Snapshot struct {
	ID           string    `json:"id"`
	InvitationID string    `json:"invitationId"`
	Version      int       `json:"version"`
	Document     []byte    `json:"document"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListFilter narrows marketplace listings.
type ListFilter struct {
	Category string
}

// Store is the persistence boundary. All backends implement it; handlers and
// the collaboration hub never see a concrete database.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitation(ctx context.Context, id string) (*Invitation, error)
	GetInvitationBySlug(ctx context.Context, slug string) (*Invitation, error)
	UpdateInvitation(ctx context.Context, inv *Invitation) error
	DeleteInvitation(ctx context.Context, id string) error
	ListInvitationsByUser(ctx context.Context, userID string) ([]*Invitation, error)
	ListPublished(ctx context.Context, f ListFilter) ([]*Invitation, error)

	AddMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, invitationID, userID string) (*Member, error)
	ListMembers(ctx context.Context, invitationID string) ([]*Member, error)
	RemoveMember(ctx context.Context, invitationID, userID string) error

	CreateSnapshot(ctx context.Context, s *Snapshot) error
	LatestSnapshot(ctx context.Context, invitationID string) (*Snapshot, error)

	Close() error
}
