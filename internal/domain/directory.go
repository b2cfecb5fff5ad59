package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role names a global permission granted by the role-authority
// service. Company-local delegation is a separate check and carries no
// role name.
type Role string

const (
	RoleStreamAdmin   Role = "stream_admin"
	RolePaymentAdmin  Role = "payment_admin"
	RoleTreasuryAdmin Role = "treasury_admin"
)

// ProjectInfo is the read-only view of a project served by the
// external directory.
type ProjectInfo struct {
	ProjectID uuid.UUID
	CompanyID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
}
