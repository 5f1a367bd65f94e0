package authz

import (
	"encoding/json"
	"sort"

	"taskmarket/internal/models"
)

// PermissionSet is a deduplicated set of permission keys.
type PermissionSet map[string]struct{}

func NewPermissionSet(keys ...string) PermissionSet {
	s := make(PermissionSet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s PermissionSet) Add(key string) {
	if key != "" {
		s[key] = struct{}{}
	}
}

func (s PermissionSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// HasAll is true when every key is present. No keys means true.
func (s PermissionSet) HasAll(keys ...string) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

func (s PermissionSet) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

func (s *PermissionSet) UnmarshalJSON(b []byte) error {
	var keys []string
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	*s = NewPermissionSet(keys...)
	return nil
}

// Resolve computes the effective permission set of a user holding roles,
// operating in mode.
//
// A universal role short-circuits to allKeys. Otherwise only grants with
// allow=true whose mode is "all" or equal to mode contribute, and the result
// is the union across all held roles. Deny rows are dropped, they never
// subtract an allow coming from another row. Grants belonging to roles the
// user does not hold are ignored.
func Resolve(roles []models.Role, grants []models.PermissionGrant, allKeys []string, mode models.Mode) PermissionSet {
	out := PermissionSet{}
	if len(roles) == 0 {
		return out
	}

	held := make(map[int64]struct{}, len(roles))
	for _, r := range roles {
		if r.IsUniversal {
			return NewPermissionSet(allKeys...)
		}
		held[r.ID] = struct{}{}
	}

	for _, g := range grants {
		if !g.Allow {
			continue
		}
		if g.Mode != models.ModeAll && g.Mode != mode {
			continue
		}
		if _, ok := held[g.RoleID]; !ok {
			continue
		}
		out.Add(g.PermissionKey)
	}
	return out
}

// RoleRefs summarizes roles for embedding in a token.
func RoleRefs(roles []models.Role) []models.RoleRef {
	out := make([]models.RoleRef, 0, len(roles))
	for _, r := range roles {
		out = append(out, models.RoleRef{Key: r.Key, Label: r.Label})
	}
	return out
}
