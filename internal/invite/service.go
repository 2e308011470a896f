package invite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/invitera/invitera/backend-go/internal/document"
	"github.com/invitera/invitera/backend-go/internal/editor"
	"github.com/invitera/invitera/backend-go/internal/store"
	"github.com/invitera/invitera/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("invitation not found")
	ErrForbidden = errors.New("forbidden")
	ErrNotMember = errors.New("not an invitation member")
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Create makes a new invitation owned by ownerID, adds the owner as an admin
// member, and seeds version 1 with the default single-slide document.
func (s *Service) Create(ctx context.Context, title, category, ownerID string) (*store.Invitation, error) {
	inv := &store.Invitation{
		ID:       typeid.NewInvitationID(),
		OwnerID:  ownerID,
		Title:    title,
		Category: category,
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	if err := s.store.AddMember(ctx, &store.Member{
		InvitationID: inv.ID,
		UserID:       ownerID,
		Role:         editor.RoleAdmin,
	}); err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	docJSON, err := json.Marshal(document.NewDefaultDocument())
	if err != nil {
		return nil, fmt.Errorf("marshal default document: %w", err)
	}
	if err := s.store.CreateSnapshot(ctx, &store.Snapshot{
		ID:           typeid.NewSnapshotID(),
		InvitationID: inv.ID,
		Version:      1,
		Document:     docJSON,
	}); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, invitationID, userID string) (*store.Invitation, error) {
	if err := s.checkMembership(ctx, invitationID, userID); err != nil {
		return nil, err
	}
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*store.Invitation, error) {
	invs, err := s.store.ListInvitationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// Browse lists published invitations for the marketplace, optionally
// filtered to one category. Guests may call this.
func (s *Service) Browse(ctx context.Context, category string) ([]*store.Invitation, error) {
	invs, err := s.store.ListPublished(ctx, store.ListFilter{Category: category})
	if err != nil {
		return nil, fmt.Errorf("browse invitations: %w", err)
	}
	return invs, nil
}

func (s *Service) Update(ctx context.Context, invitationID, userID, title, description, category string) (*store.Invitation, error) {
	inv, err := s.requireOwner(ctx, invitationID, userID)
	if err != nil {
		return nil, err
	}
	if title != "" {
		inv.Title = title
	}
	inv.Description = description
	if category != "" {
		inv.Category = category
	}
	if err := s.store.UpdateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}
	return inv, nil
}

// Publish lists the invitation on the marketplace. The first publish mints a
// share slug (title prefix plus a ulid tail) that stays stable afterwards.
func (s *Service) Publish(ctx context.Context, invitationID, userID string) (*store.Invitation, error) {
	inv, err := s.requireOwner(ctx, invitationID, userID)
	if err != nil {
		return nil, err
	}
	inv.Published = true
	if inv.ShareSlug == "" {
		inv.ShareSlug = mintSlug(inv.Title)
	}
	if err := s.store.UpdateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("publish invitation: %w", err)
	}
	return inv, nil
}

func (s *Service) Unpublish(ctx context.Context, invitationID, userID string) (*store.Invitation, error) {
	inv, err := s.requireOwner(ctx, invitationID, userID)
	if err != nil {
		return nil, err
	}
	inv.Published = false
	if err := s.store.UpdateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("unpublish invitation: %w", err)
	}
	return inv, nil
}

// Resolve looks a published invitation up by share slug, together with its
// latest document. Used by the public viewer; no authentication required.
func (s *Service) Resolve(ctx context.Context, slug string) (*store.Invitation, json.RawMessage, error) {
	inv, err := s.store.GetInvitationBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("resolve slug: %w", err)
	}
	if !inv.Published {
		return nil, nil, ErrNotFound
	}
	snap, err := s.store.LatestSnapshot(ctx, inv.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get snapshot: %w", err)
	}
	return inv, snap.Document, nil
}

func (s *Service) Delete(ctx context.Context, invitationID, userID string) error {
	if _, err := s.requireOwner(ctx, invitationID, userID); err != nil {
		return err
	}
	return s.store.DeleteInvitation(ctx, invitationID)
}

// InviteByEmail adds a collaborator. Role must be creator (can edit) or
// user (view and RSVP only); anything else is rejected.
func (s *Service) InviteByEmail(ctx context.Context, invitationID, ownerID, inviteeEmail, role string) error {
	if _, err := s.requireOwner(ctx, invitationID, ownerID); err != nil {
		return err
	}

	role = editor.NormalizeRole(role)
	if role == "" {
		role = editor.RoleUser
	}
	if role != editor.RoleCreator && role != editor.RoleUser {
		return fmt.Errorf("role %q cannot be granted", role)
	}

	invitee, err := s.store.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("user not found")
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.store.AddMember(ctx, &store.Member{
		InvitationID: invitationID,
		UserID:       invitee.ID,
		Role:         role,
	})
}

func (s *Service) ListMembers(ctx context.Context, invitationID, userID string) ([]Member, error) {
	if err := s.checkMembership(ctx, invitationID, userID); err != nil {
		return nil, err
	}

	ms, err := s.store.ListMembers(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, 0, len(ms))
	for _, m := range ms {
		member := Member{UserID: m.UserID, Role: m.Role}
		if u, err := s.store.GetUser(ctx, m.UserID); err == nil {
			member.DisplayName = u.DisplayName
			member.Email = u.Email
		}
		members = append(members, member)
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, invitationID, ownerID, targetUserID string) error {
	if _, err := s.requireOwner(ctx, invitationID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return errors.New("cannot remove invitation owner")
	}
	return s.store.RemoveMember(ctx, invitationID, targetUserID)
}

// MemberRole resolves the editor role a user holds on an invitation, for
// capability checks in the collaboration session.
func (s *Service) MemberRole(ctx context.Context, invitationID, userID string) (string, error) {
	m, err := s.store.GetMember(ctx, invitationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("get member: %w", err)
	}
	return editor.NormalizeRole(m.Role), nil
}

func (s *Service) GetLatestSnapshot(ctx context.Context, invitationID, userID string) (json.RawMessage, error) {
	if err := s.checkMembership(ctx, invitationID, userID); err != nil {
		return nil, err
	}
	snap, err := s.store.LatestSnapshot(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Document, nil
}

// SaveSnapshot persists a new document version. The document must pass the
// same validation imports go through; a malformed payload is rejected whole.
func (s *Service) SaveSnapshot(ctx context.Context, invitationID, userID string, doc json.RawMessage) error {
	role, err := s.MemberRole(ctx, invitationID, userID)
	if err != nil {
		return err
	}
	if !editor.DefaultOracle(role).CanEdit {
		return ErrForbidden
	}
	if _, err := editor.Load(doc, editor.Options{}); err != nil {
		return fmt.Errorf("reject snapshot: %w", err)
	}

	version := 1
	if prev, err := s.store.LatestSnapshot(ctx, invitationID); err == nil {
		version = prev.Version + 1
	}
	return s.store.CreateSnapshot(ctx, &store.Snapshot{
		ID:           typeid.NewSnapshotID(),
		InvitationID: invitationID,
		Version:      version,
		Document:     doc,
	})
}

func (s *Service) checkMembership(ctx context.Context, invitationID, userID string) error {
	_, err := s.store.GetMember(ctx, invitationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func (s *Service) requireOwner(ctx context.Context, invitationID, userID string) (*store.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.OwnerID != userID {
		return nil, ErrForbidden
	}
	return inv, nil
}

func mintSlug(title string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, title)
	base = strings.Trim(base, "-")
	if len(base) > 24 {
		base = base[:24]
	}
	tail := strings.ToLower(ulid.Make().String())
	if base == "" {
		return tail
	}
	return base + "-" + tail[len(tail)-8:]
}
