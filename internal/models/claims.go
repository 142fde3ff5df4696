package models

import "github.com/golang-jwt/jwt/v5"

// Roles
const (
	RoleAdmin        = "admin"
	RoleAnalyst      = "analyst"
	RoleInvestigator = "investigator"
)

// Application permissions
const (
	PermissionTransactionRead   = "transaction:read"
	PermissionTransactionWrite  = "transaction:write"
	PermissionTransactionExport = "transaction:export"
	PermissionAlertRead         = "alert:read"
	PermissionAlertWrite        = "alert:write"
	PermissionWriteAdmin        = "admin:write"
)

// Token types carried in claims.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Username     string   `json:"username"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions,omitempty"`
	TokenVersion int      `json:"token_version"`
	TokenType    string   `json:"token_type"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAnalyst, RoleInvestigator:
		return true
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionTransactionExport,
			PermissionAlertRead,
			PermissionAlertWrite,
			PermissionWriteAdmin,
		}
	case RoleAnalyst:
		return []string{
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionTransactionExport,
			PermissionAlertRead,
		}
	case RoleInvestigator:
		return []string{
			PermissionTransactionRead,
			PermissionTransactionExport,
			PermissionAlertRead,
			PermissionAlertWrite,
		}
	default:
		return []string{}
	}
}
