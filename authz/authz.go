// Package authz holds the role model and the one permission table every
// handler goes through. A Principal is built once per request by the auth
// middleware and handed explicitly to services.
package authz

import (
	"fmt"
	"strings"

	"research_portal_api/apperr"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
)

// ParseRole maps a role claim to a Role. An empty claim is a student.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMentor:
		return RoleMentor, nil
	case RoleStudent, "":
		return RoleStudent, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Principal is the verified caller.
type Principal struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type Action int

const (
	CreatePublication Action = iota
	ListAllPublications
	ListOwnPublications
	ReadPublication
	UpdatePublication
	DeletePublication

	ReadInventory
	WriteInventory
	IssueLoan
	ReturnLoan

	ManageUsers
	ListObjects
	PresignUpload
)

var actionNames = map[Action]string{
	CreatePublication:   "create publication",
	ListAllPublications: "list all publications",
	ListOwnPublications: "list own publications",
	ReadPublication:     "read publication",
	UpdatePublication:   "update publication",
	DeletePublication:   "delete publication",
	ReadInventory:       "read inventory",
	WriteInventory:      "write inventory",
	IssueLoan:           "issue loan",
	ReturnLoan:          "return loan",
	ManageUsers:         "manage users",
	ListObjects:         "list storage objects",
	PresignUpload:       "upload files",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

var (
	everyone    = []Role{RoleAdmin, RoleMentor, RoleStudent}
	staff       = []Role{RoleAdmin, RoleMentor}
	adminsOnly  = []Role{RoleAdmin}
	permissions = map[Action][]Role{
		CreatePublication:   everyone,
		ListAllPublications: staff,
		ListOwnPublications: everyone,
		ReadPublication:     everyone,
		UpdatePublication:   everyone,
		DeletePublication:   everyone,
		ReadInventory:       staff,
		WriteInventory:      adminsOnly,
		IssueLoan:           staff,
		ReturnLoan:          staff,
		ManageUsers:         adminsOnly,
		ListObjects:         adminsOnly,
		PresignUpload:       everyone,
	}
)

// Can reports whether p's role may perform a. The zero Principal is
// unauthenticated.
func Can(p Principal, a Action) error {
	if p.UID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	for _, r := range permissions[a] {
		if r == p.Role {
			return nil
		}
	}
	return apperr.Forbidden(fmt.Sprintf("role %q may not %s", p.Role, a))
}

// RequireOwner is the owner-equality gate: the caller's subject must equal
// the stored owner.
func RequireOwner(p Principal, ownerUID string) error {
	if p.UID == "" || p.UID != ownerUID {
		return apperr.Forbidden("not the owner of this resource")
	}
	return nil
}

// CanModify combines the role check for a with the owner gate. owner is
// only called once the role check passes, so it may load the resource.
func CanModify(p Principal, a Action, owner func() string) error {
	if err := Can(p, a); err != nil {
		return err
	}
	return RequireOwner(p, owner())
}
