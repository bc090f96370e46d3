package model

import "strings"

// Role is the closed set of account roles.  The value is stored as-is in
// users.role and carried in the "role" claim of access tokens.
type Role string

const (
	RoleUser         Role = "USER"         // patient / citizen account
	RoleProfissional Role = "PROFISSIONAL" // health professional with a bookable agenda
	RoleGestor       Role = "GESTOR"       // unit manager
	RoleRecepcao     Role = "RECEPCAO"     // front desk
	RoleACS          Role = "ACS"          // community health agent
)

// AllRoles lists every role in declaration order.
var AllRoles = []Role{RoleUser, RoleProfissional, RoleGestor, RoleRecepcao, RoleACS}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleProfissional, RoleGestor, RoleRecepcao, RoleACS:
		return true
	}
	return false
}

// IsConsultStaff reports whether r may manage any appointment (cancel,
// reschedule, confirm) regardless of who booked it.
func (r Role) IsConsultStaff() bool {
	switch r {
	case RoleProfissional, RoleGestor, RoleRecepcao:
		return true
	case RoleUser, RoleACS:
		return false
	}
	return false
}

// CanViewAgenda reports whether r may read a professional's full agenda.
func (r Role) CanViewAgenda() bool {
	switch r {
	case RoleProfissional, RoleGestor, RoleRecepcao, RoleACS:
		return true
	case RoleUser:
		return false
	}
	return false
}

// CanManageAnyBlock reports whether r may create or delete schedule blocks
// on behalf of another professional.
func (r Role) CanManageAnyBlock() bool {
	switch r {
	case RoleGestor:
		return true
	case RoleUser, RoleProfissional, RoleRecepcao, RoleACS:
		return false
	}
	return false
}

// CanManageTeams reports whether r may edit microareas and agents.
func (r Role) CanManageTeams() bool {
	switch r {
	case RoleGestor, RoleRecepcao:
		return true
	case RoleUser, RoleProfissional, RoleACS:
		return false
	}
	return false
}

// CanEditCalendar reports whether r may read and write unit calendar events.
func (r Role) CanEditCalendar() bool {
	switch r {
	case RoleGestor, RoleProfissional, RoleACS:
		return true
	case RoleUser, RoleRecepcao:
		return false
	}
	return false
}

// CanAdministerAccounts reports whether r may change roles, activation and
// professional profiles of other accounts.
func (r Role) CanAdministerAccounts() bool {
	switch r {
	case RoleGestor:
		return true
	case RoleUser, RoleProfissional, RoleRecepcao, RoleACS:
		return false
	}
	return false
}

// RolesWhere returns the roles for which pred holds.  Routers use it to
// build RequireRole lists from the capability methods above.
func RolesWhere(pred func(Role) bool) []Role {
	out := make([]Role, 0, len(AllRoles))
	for _, r := range AllRoles {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
