// Package filter decides which listed repositories are collected.
// It is pure so every provider gets the same semantics
package filter

// Set holds the operator switches. The zero value accepts private,
// non archived, non forked repositories only
type Set struct {
	IncludePublic   bool `yaml:"include_public" json:"include_public"`
	IncludeArchived bool `yaml:"include_archived" json:"include_archived"`
	IncludeForked   bool `yaml:"include_forked" json:"include_forked"`
}

// Flags are the attributes of one repository the policy looks at
type Flags struct {
	Private  bool
	Fork     bool
	Archived bool

	// Explicit is set for locations the operator named directly.
	// The provider cannot report attributes for them so they always pass
	Explicit bool
}

// Accept reports whether a repository with flags f passes every gate of s
func Accept(f Flags, s Set) bool { return Reason(f, s) == "" }

// Reason returns the first gate f fails ("public", "archived", "fork") or "" when accepted
func Reason(f Flags, s Set) string {
	if f.Explicit {
		return ""
	}
	switch {
	case !f.Private && !s.IncludePublic:
		return "public"
	case f.Archived && !s.IncludeArchived:
		return "archived"
	case f.Fork && !s.IncludeForked:
		return "fork"
	}
	return ""
}
