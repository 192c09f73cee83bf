package domain

import "strings"

// IdentityKind tells which upstream scheme produced an identity value.
type IdentityKind string

const (
	// FeedIdentity values are feed item GUIDs (or links) and scraped episode URLs.
	FeedIdentity IdentityKind = "feed"
	// ArchiveIdentity values are archive file names, compared byte for byte.
	ArchiveIdentity IdentityKind = "archive"
)

// Identity is the opaque "have we seen this episode" key for a podcast.
type Identity struct {
	Kind  IdentityKind `json:"kind" bson:"kind"`
	Value string       `json:"value" bson:"value"`
}

// NormalizeIdentity turns a raw upstream value into a comparable identity.
// Feed values are trimmed; archive file names are kept exactly as listed,
// because two files can differ only by surrounding whitespace.
// It never fails: an unusable raw value yields an empty identity.
func NormalizeIdentity(raw string, kind IdentityKind) Identity {
	switch kind {
	case FeedIdentity:
		return Identity{Kind: kind, Value: strings.TrimSpace(raw)}
	case ArchiveIdentity:
		return Identity{Kind: kind, Value: raw}
	default:
		return Identity{}
	}
}

// IsZero reports whether the identity carries no value.
func (id Identity) IsZero() bool {
	return id.Value == ""
}

// Equal reports whether two identities name the same episode.
// Identities of different kinds never match, and an empty identity matches nothing.
func (id Identity) Equal(other Identity) bool {
	if id.IsZero() || other.IsZero() {
		return false
	}
	return id.Kind == other.Kind && id.Value == other.Value
}

func (id Identity) String() string {
	if id.IsZero() {
		return ""
	}
	return string(id.Kind) + ":" + id.Value
}
