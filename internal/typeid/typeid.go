package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser       = "user"
	PrefixInvitation = "invite"
	PrefixSnapshot   = "snap"
	PrefixMember     = "member"
	PrefixAsset      = "asset"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string       { return New(PrefixUser) }
func NewInvitationID() string { return New(PrefixInvitation) }
func NewSnapshotID() string   { return New(PrefixSnapshot) }
func NewMemberID() string     { return New(PrefixMember) }
func NewAssetID() string      { return New(PrefixAsset) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
