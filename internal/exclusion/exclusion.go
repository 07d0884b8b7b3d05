// Package exclusion holds the identity denylist applied to customer messages.
package exclusion

import (
	"sort"
	"strings"
)

// Set is a read-only set of excluded identities. The zero value excludes nothing.
type Set struct {
	ids map[string]struct{}
}

// New builds a Set from identity strings. Blank entries are ignored.
func New(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
	return s
}

// Union returns a new Set holding the identities of s and others.
func (s Set) Union(others ...Set) Set {
	out := New(s.List()...)
	for _, o := range others {
		for id := range o.ids {
			out.ids[id] = struct{}{}
		}
	}
	return out
}

// IsExcluded reports whether identity belongs to the set. An empty identity is
// never excluded.
func (s Set) IsExcluded(identity string) bool {
	identity = strings.TrimSpace(identity)
	if identity == "" || len(s.ids) == 0 {
		return false
	}
	_, ok := s.ids[identity]
	return ok
}

// Len returns the number of identities.
func (s Set) Len() int {
	return len(s.ids)
}

// List returns the identities in sorted order.
func (s Set) List() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
