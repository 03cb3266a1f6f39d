package constants

import "fmt"

// Role error message templates
const (
	ErrOnlyAdminsCanAccess  = "Only a warden or admin may access %s."
	ErrOnlyStudentCanAccess = "Only a student account may access %s."
)

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

func RoleErrorStudent(feature string) string {
	return fmt.Sprintf(ErrOnlyStudentCanAccess, feature)
}

// ==========================
// Role names
// ==========================
const (
	RoleStudent = "student"
	RoleWarden  = "warden"
	RoleAdmin   = "admin"
)

var (
	AllRoles   = []string{RoleStudent, RoleWarden, RoleAdmin}
	AdminRoles = []string{RoleWarden, RoleAdmin}
)
