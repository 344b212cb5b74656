package payment

import (
	"github.com/creditlab/payment-service/internal/module/auth"
	"github.com/google/uuid"
)

// Principal identifies the caller of a payment operation.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// SystemPrincipal is used for transitions driven by verified webhook
// events rather than an authenticated request.
var SystemPrincipal = Principal{Role: auth.RoleService}

// IsAdmin returns true for administrators and trusted internal callers.
func (p Principal) IsAdmin() bool {
	return p.Role == auth.RoleAdmin || p.Role == auth.RoleService
}

// AccessPolicy decides who may read or mutate a payment record.
type AccessPolicy struct {
	// AllowOwnerTransitions lets the owning user drive confirm/fail/refund
	// directly. Deprecated; kept for deployments without webhook delivery.
	AllowOwnerTransitions bool
}

// CanRead returns true if the principal may read a payment owned by
// ownerID.
func (AccessPolicy) CanRead(p Principal, ownerID uuid.UUID) bool {
	return p.IsAdmin() || p.UserID == ownerID
}

// CanTransition returns true if the principal may drive a lifecycle
// transition on a payment owned by ownerID.
func (a AccessPolicy) CanTransition(p Principal, ownerID uuid.UUID) bool {
	if p.IsAdmin() {
		return true
	}
	return a.AllowOwnerTransitions && p.UserID == ownerID
}
