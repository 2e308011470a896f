package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/invitera/invitera/backend-go/internal/store"
)

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	u := &store.User{ID: "user_1", Email: "a@b.c", DisplayName: "A", Role: "creator"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	dup := &store.User{ID: "user_2", Email: "a@b.c", DisplayName: "B", Role: "user"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrConflict) {
		t.Errorf("duplicate email error = %v, want ErrConflict", err)
	}

	got, err := s.GetUserByEmail(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if got.ID != "user_1" {
		t.Errorf("GetUserByEmail() id = %q, want user_1", got.ID)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := NewStore()
	if _, err := s.GetUser(context.Background(), "user_missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestInvitation_SlugLookup(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	inv := &store.Invitation{ID: "invite_1", OwnerID: "user_1", Title: "Garden Party", ShareSlug: "garden-party"}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation() failed: %v", err)
	}

	got, err := s.GetInvitationBySlug(ctx, "garden-party")
	if err != nil {
		t.Fatalf("GetInvitationBySlug() failed: %v", err)
	}
	if got.ID != "invite_1" {
		t.Errorf("slug lookup id = %q, want invite_1", got.ID)
	}

	// Changing the slug releases the old one.
	got.ShareSlug = "spring-garden"
	if err := s.UpdateInvitation(ctx, got); err != nil {
		t.Fatalf("UpdateInvitation() failed: %v", err)
	}
	if _, err := s.GetInvitationBySlug(ctx, "garden-party"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("stale slug error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetInvitationBySlug(ctx, "spring-garden"); err != nil {
		t.Errorf("new slug lookup failed: %v", err)
	}
}

func TestListPublished_CategoryFilter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	seed := []*store.Invitation{
		{ID: "invite_1", OwnerID: "user_1", Title: "Wedding", Category: "wedding", Published: true},
		{ID: "invite_2", OwnerID: "user_1", Title: "Birthday", Category: "birthday", Published: true},
		{ID: "invite_3", OwnerID: "user_1", Title: "Draft", Category: "wedding", Published: false},
	}
	for _, inv := range seed {
		if err := s.CreateInvitation(ctx, inv); err != nil {
			t.Fatalf("CreateInvitation(%s) failed: %v", inv.ID, err)
		}
	}

	all, err := s.ListPublished(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("ListPublished() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unfiltered listing has %d entries, want 2", len(all))
	}

	weddings, err := s.ListPublished(ctx, store.ListFilter{Category: "wedding"})
	if err != nil {
		t.Fatalf("ListPublished(wedding) failed: %v", err)
	}
	if len(weddings) != 1 || weddings[0].ID != "invite_1" {
		t.Errorf("wedding listing = %+v, want just invite_1", weddings)
	}
}

func TestMembers_RoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.CreateInvitation(ctx, &store.Invitation{ID: "invite_1", OwnerID: "user_1", Title: "T"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, &store.Member{InvitationID: "invite_1", UserID: "user_2", Role: "creator"}); err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	if err := s.AddMember(ctx, &store.Member{InvitationID: "invite_missing", UserID: "user_2", Role: "creator"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("member on missing invitation error = %v, want ErrNotFound", err)
	}

	m, err := s.GetMember(ctx, "invite_1", "user_2")
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if m.Role != "creator" {
		t.Errorf("member role = %q, want creator", m.Role)
	}

	// Collaborator sees the invitation in their listing.
	invs, err := s.ListInvitationsByUser(ctx, "user_2")
	if err != nil {
		t.Fatalf("ListInvitationsByUser() failed: %v", err)
	}
	if len(invs) != 1 || invs[0].ID != "invite_1" {
		t.Errorf("collaborator listing = %+v", invs)
	}

	if err := s.RemoveMember(ctx, "invite_1", "user_2"); err != nil {
		t.Fatalf("RemoveMember() failed: %v", err)
	}
	if _, err := s.GetMember(ctx, "invite_1", "user_2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("removed member error = %v, want ErrNotFound", err)
	}
}

func TestSnapshots_LatestWins(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	base := time.Now().UTC()
	for v := 1; v <= 3; v++ {
		snap := &store.Snapshot{
			ID:           fmt.Sprintf("snap_%d", v),
			InvitationID: "invite_1",
			Version:      v,
			Document:     fmt.Appendf(nil, `{"v":%d}`, v),
			CreatedAt:    base.Add(time.Duration(v) * time.Second),
		}
		if err := s.CreateSnapshot(ctx, snap); err != nil {
			t.Fatalf("CreateSnapshot(v%d) failed: %v", v, err)
		}
	}

	latest, err := s.LatestSnapshot(ctx, "invite_1")
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if latest.Version != 3 {
		t.Errorf("latest version = %d, want 3", latest.Version)
	}

	if _, err := s.LatestSnapshot(ctx, "invite_none"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("no-snapshot error = %v, want ErrNotFound", err)
	}
}

func TestDeleteInvitation_CascadesMembersAndSnapshots(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.CreateInvitation(ctx, &store.Invitation{ID: "invite_1", OwnerID: "user_1", Title: "T", ShareSlug: "t"}); err != nil {
		t.Fatal(err)
	}
	s.AddMember(ctx, &store.Member{InvitationID: "invite_1", UserID: "user_2", Role: "user"})
	s.CreateSnapshot(ctx, &store.Snapshot{ID: "snap_1", InvitationID: "invite_1", Version: 1, Document: []byte("{}")})

	if err := s.DeleteInvitation(ctx, "invite_1"); err != nil {
		t.Fatalf("DeleteInvitation() failed: %v", err)
	}
	if _, err := s.GetInvitationBySlug(ctx, "t"); !errors.Is(err, store.ErrNotFound) {
		t.Error("slug survived deletion")
	}
	if _, err := s.GetMember(ctx, "invite_1", "user_2"); !errors.Is(err, store.ErrNotFound) {
		t.Error("member survived deletion")
	}
	if _, err := s.LatestSnapshot(ctx, "invite_1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("snapshot survived deletion")
	}
}
