package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role names that appear in workflow step definitions.
const (
	RoleEmployee   = "EMPLOYEE"
	RoleManager    = "MANAGER"
	RoleHR         = "HR"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPERADMIN"
	RoleSystem     = "SYSTEM"
)

// User is the authenticated-actor value object: identity plus the role and
// permission sets capability checks are evaluated against.
type User struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	organizationID uuid.UUID
	email          string
	displayName    string
	phone          string
	roles          []string
	permissions    []string
	uiLanguage     UILanguage
	createdAt      time.Time
	updatedAt      time.Time
}

func New(tenantID, organizationID uuid.UUID, email, displayName string, roles []string) User {
	return User{
		tenantID:       tenantID,
		organizationID: organizationID,
		email:          strings.TrimSpace(email),
		displayName:    strings.TrimSpace(displayName),
		roles:          normalizeSet(roles),
		uiLanguage:     UILanguageEN,
	}
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	organizationID uuid.UUID,
	email string,
	displayName string,
	phone string,
	roles []string,
	permissions []string,
	uiLanguage UILanguage,
	createdAt time.Time,
	updatedAt time.Time,
) User {
	return User{
		id:             id,
		tenantID:       tenantID,
		organizationID: organizationID,
		email:          strings.TrimSpace(email),
		displayName:    strings.TrimSpace(displayName),
		phone:          strings.TrimSpace(phone),
		roles:          normalizeSet(roles),
		permissions:    normalizeSet(permissions),
		uiLanguage:     uiLanguage,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (u User) ID() uuid.UUID             { return u.id }
func (u User) TenantID() uuid.UUID       { return u.tenantID }
func (u User) OrganizationID() uuid.UUID { return u.organizationID }
func (u User) Email() string             { return u.email }
func (u User) DisplayName() string       { return u.displayName }
func (u User) Phone() string             { return u.phone }
func (u User) Roles() []string           { return u.roles }
func (u User) Permissions() []string     { return u.permissions }
func (u User) UILanguage() UILanguage    { return u.uiLanguage }
func (u User) CreatedAt() time.Time      { return u.createdAt }
func (u User) UpdatedAt() time.Time      { return u.updatedAt }
func (u User) IsZero() bool              { return u.id == uuid.Nil }

func (u User) HasRole(name string) bool {
	name = strings.TrimSpace(name)
	for _, r := range u.roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

func (u User) HasPermission(name string) bool {
	name = strings.TrimSpace(name)
	for _, p := range u.permissions {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		n := strings.TrimSpace(v)
		if n == "" {
			continue
		}
		key := strings.ToUpper(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
