package domain

import (
	"context"
	"errors"
)

// User is an authenticated caller. The ID doubles as the account identifier
// for balance records; identity itself lives in the token issuer, not here.
type User struct {
	ID   string
	Role Role
}

// Role represents a caller's access level
type Role string

const (
	// RoleAdmin may read bank statistics and replace the oracle feed
	RoleAdmin Role = "admin"

	// RoleOperator may post settlement receipts on behalf of any account
	RoleOperator Role = "operator"

	// RoleViewer may transact on its own account and read its own balances
	RoleViewer Role = "viewer"
)

// Valid roles
var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleViewer:   true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanAdminister checks if the role can read bank-wide statistics and manage
// the oracle reference.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// CanSubmitReceipts checks if the role can record bare incoming transfers
// for arbitrary accounts.
func (r Role) CanSubmitReceipts() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type userContextKey struct{}

// ContextWithUser attaches the authenticated caller to the context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated caller from the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok
}
