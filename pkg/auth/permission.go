package auth

import (
	"sort"
	"strings"
	"unicode"
)

// CapabilitySet is a parsed permission string.
type CapabilitySet map[Capability]struct{}

// ParseCapabilities splits a permission string on commas and whitespace.
func ParseCapabilities(permission string) CapabilitySet {
	fields := strings.FieldsFunc(permission, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	set := make(CapabilitySet, len(fields))
	for _, f := range fields {
		set[Capability(f)] = struct{}{}
	}
	return set
}

// Has reports membership of c, honoring the wildcard.
func (s CapabilitySet) Has(c Capability) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	_, ok := s[c]
	return ok
}

// String renders the set in canonical comma separated form.
func (s CapabilitySet) String() string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// Evaluate decides whether session may perform capability. It has no side
// effects. A nil session yields NoSession, an empty capability is public, and
// a session without an active group is granted nothing else.
func Evaluate(session *Session, capability Capability) Decision {
	if session == nil {
		return NoSession
	}
	if capability == "" {
		return Granted
	}
	if session.GroupID == nil || session.GroupDisabled {
		return Forbidden
	}
	if ParseCapabilities(session.Permission).Has(capability) {
		return Granted
	}
	return Forbidden
}
