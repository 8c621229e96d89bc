package users

import "strings"

// AdminAllowList promotes configured identities to the admin role.
// Built once from configuration and never mutated.
type AdminAllowList struct {
	ids    map[string]struct{}
	logins map[string]struct{}
}

// NewAdminAllowList builds an allow-list; logins compare case-insensitively
func NewAdminAllowList(ids, logins []string) AdminAllowList {
	list := AdminAllowList{
		ids:    make(map[string]struct{}, len(ids)),
		logins: make(map[string]struct{}, len(logins)),
	}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			list.ids[id] = struct{}{}
		}
	}
	for _, login := range logins {
		if login = strings.ToLower(strings.TrimSpace(login)); login != "" {
			list.logins[login] = struct{}{}
		}
	}
	return list
}

// Contains reports whether the user is on the list
func (l AdminAllowList) Contains(u *User) bool {
	if u == nil {
		return false
	}
	if _, ok := l.ids[u.ID]; ok {
		return true
	}
	_, ok := l.logins[strings.ToLower(u.Login)]
	return ok
}

// Apply returns u with the admin role when listed. The input is not modified.
func (l AdminAllowList) Apply(u *User) *User {
	if u == nil || u.Role == RoleAdmin || !l.Contains(u) {
		return u
	}
	promoted := *u
	promoted.Role = RoleAdmin
	return &promoted
}
