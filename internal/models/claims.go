package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	PermissionCreditsRead  = "credits:read"
	PermissionCreditsWrite = "credits:write"

	PermissionPropertyWrite = "property:write"
	PermissionInterestWrite = "interest:write"
	PermissionInterestRead  = "interest:read"
	PermissionUnlock        = "interest:unlock"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
	TokenType    string   `json:"token_type,omitempty"`
}

// Token types
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionReadAdmin,
			PermissionWriteAdmin,
			PermissionCreditsRead,
			PermissionCreditsWrite,
			PermissionPropertyWrite,
			PermissionInterestRead,
			PermissionInterestWrite,
			PermissionUnlock,
		}
	case RoleAgent:
		return []string{
			PermissionCreditsRead,
			PermissionCreditsWrite,
			PermissionPropertyWrite,
			PermissionInterestRead,
			PermissionUnlock,
		}
	case RoleSeeker:
		return []string{
			PermissionCreditsRead,
			PermissionInterestRead,
			PermissionInterestWrite,
		}
	default:
		return []string{}
	}
}
