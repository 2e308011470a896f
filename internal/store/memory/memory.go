// Package memory is the zero-config store backend used for development and
// tests. Everything lives in maps behind one mutex and vanishes on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/invitera/invitera/backend-go/internal/store"
)

type memoryStore struct {
	mu          sync.RWMutex
	users       map[string]*store.User
	usersByMail map[string]string
	invitations map[string]*store.Invitation
	slugs       map[string]string
	members     map[string]map[string]*store.Member // invitationID -> userID
	snapshots   map[string][]*store.Snapshot        // invitationID, version-ordered
}

func NewStore() store.Store {
	return &memoryStore{
		users:       make(map[string]*store.User),
		usersByMail: make(map[string]string),
		invitations: make(map[string]*store.Invitation),
		slugs:       make(map[string]string),
		members:     make(map[string]map[string]*store.Member),
		snapshots:   make(map[string][]*store.Snapshot),
	}
}

func (s *memoryStore) CreateUser(_ context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usersByMail[u.Email]; ok {
		return store.ErrConflict
	}
	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.users[cp.ID] = &cp
	s.usersByMail[cp.Email] = cp.ID
	return nil
}

func (s *memoryStore) GetUser(_ context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memoryStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByMail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *memoryStore) CreateInvitation(_ context.Context, inv *store.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[inv.ID]; ok {
		return store.ErrConflict
	}
	cp := *inv
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.invitations[cp.ID] = &cp
	if cp.ShareSlug != "" {
		s.slugs[cp.ShareSlug] = cp.ID
	}
	return nil
}

func (s *memoryStore) GetInvitation(_ context.Context, id string) (*store.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *memoryStore) GetInvitationBySlug(_ context.Context, slug string) (*store.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.invitations[id]
	return &cp, nil
}

func (s *memoryStore) UpdateInvitation(_ context.Context, inv *store.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.invitations[inv.ID]
	if !ok {
		return store.ErrNotFound
	}
	if old.ShareSlug != "" && old.ShareSlug != inv.ShareSlug {
		delete(s.slugs, old.ShareSlug)
	}
	cp := *inv
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.invitations[cp.ID] = &cp
	if cp.ShareSlug != "" {
		s.slugs[cp.ShareSlug] = cp.ID
	}
	return nil
}

func (s *memoryStore) DeleteInvitation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return store.ErrNotFound
	}
	if inv.ShareSlug != "" {
		delete(s.slugs, inv.ShareSlug)
	}
	delete(s.invitations, id)
	delete(s.members, id)
	delete(s.snapshots, id)
	return nil
}

func (s *memoryStore) ListInvitationsByUser(_ context.Context, userID string) ([]*store.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Invitation
	for id, inv := range s.invitations {
		if inv.OwnerID == userID {
			cp := *inv
			out = append(out, &cp)
			continue
		}
		if _, ok := s.members[id][userID]; ok {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *memoryStore) ListPublished(_ context.Context, f store.ListFilter) ([]*store.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Invitation
	for _, inv := range s.invitations {
		if !inv.Published {
			continue
		}
		if f.Category != "" && inv.Category != f.Category {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	sortByCreated(out)
	return out, nil
}

func (s *memoryStore) AddMember(_ context.Context, m *store.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[m.InvitationID]; !ok {
		return store.ErrNotFound
	}
	byUser := s.members[m.InvitationID]
	if byUser == nil {
		byUser = make(map[string]*store.Member)
		s.members[m.InvitationID] = byUser
	}
	cp := *m
	if cp.AddedAt.IsZero() {
		cp.AddedAt = time.Now().UTC()
	}
	byUser[cp.UserID] = &cp
	return nil
}

func (s *memoryStore) GetMember(_ context.Context, invitationID, userID string) (*store.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[invitationID][userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memoryStore) ListMembers(_ context.Context, invitationID string) ([]*store.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser := s.members[invitationID]
	out := make([]*store.Member, 0, len(byUser))
	for _, m := range byUser {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (s *memoryStore) RemoveMember(_ context.Context, invitationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[invitationID][userID]; !ok {
		return store.ErrNotFound
	}
	delete(s.members[invitationID], userID)
	return nil
}

func (s *memoryStore) CreateSnapshot(_ context.Context, snap *store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	cp.Document = append([]byte(nil), snap.Document...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.snapshots[cp.InvitationID] = append(s.snapshots[cp.InvitationID], &cp)
	return nil
}

func (s *memoryStore) LatestSnapshot(_ context.Context, invitationID string) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := s.snapshots[invitationID]
	if len(snaps) == 0 {
		return nil, store.ErrNotFound
	}
	latest := snaps[0]
	for _, snap := range snaps[1:] {
		if snap.Version > latest.Version {
			latest = snap
		}
	}
	cp := *latest
	cp.Document = append([]byte(nil), latest.Document...)
	return &cp, nil
}

func (s *memoryStore) Close() error { return nil }

func sortByCreated(invs []*store.Invitation) {
	sort.Slice(invs, func(i, j int) bool {
		if invs[i].CreatedAt.Equal(invs[j].CreatedAt) {
			return invs[i].ID < invs[j].ID
		}
		return invs[i].CreatedAt.After(invs[j].CreatedAt)
	})
}
