package rbac

// Permission is a named capability granted to a role.
type Permission string

const (
	PermAll Permission = "*"

	PermManageUsers       Permission = "manage_users"
	PermManageQuestions   Permission = "manage_questions"
	PermViewStats         Permission = "view_stats"
	PermManageDepartments Permission = "manage_departments"

	PermCreateQuestions     Permission = "create_questions"
	PermEditOwnQuestions    Permission = "edit_own_questions"
	PermViewQuestions       Permission = "view_questions"
	PermViewStudentProgress Permission = "view_student_progress"

	PermAttemptQuestions Permission = "attempt_questions"
	PermViewOwnProgress  Permission = "view_own_progress"
	PermUpdateOwnProfile Permission = "update_own_profile"
)

// Permissions returns the permissions granted to r. Unknown roles get none.
func (r Role) Permissions() []Permission {
	switch r {
	case RoleSuperAdmin:
		return []Permission{PermAll}
	case RoleAdmin:
		return []Permission{PermManageUsers, PermManageQuestions, PermViewStats, PermManageDepartments}
	case RoleStaff:
		return []Permission{PermCreateQuestions, PermEditOwnQuestions, PermViewQuestions, PermViewStudentProgress}
	case RoleStudent:
		return []Permission{PermAttemptQuestions, PermViewOwnProgress, PermUpdateOwnProfile}
	default:
		return nil
	}
}

// Can reports whether r holds p. super_admin and any role holding the wildcard pass every check.
func (r Role) Can(p Permission) bool {
	if r == RoleSuperAdmin {
		return true
	}
	for _, granted := range r.Permissions() {
		if granted == PermAll || granted == p {
			return true
		}
	}
	return false
}
