package hierarchy

import "time"

// Scope はレビュー権限の範囲です。
type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeTeam         Scope = "team"
)

// Role はレビュアーの役割ラベルです。
type Role string

const (
	RoleOrganizationAdmin Role = "organization_admin"
	RoleAssignedManager   Role = "assigned_manager"
)

// IsValid は既知のロールかどうかを返します。
func (r Role) IsValid() bool {
	return r == RoleOrganizationAdmin || r == RoleAssignedManager
}

// Grant はレビュアーに付与された権限です。
type Grant struct {
	ID             string
	ReviewerID     string
	OrganizationID string
	Scope          Scope
	TeamID         string
	Role           Role
	CreatedAt      time.Time
	RevokedAt      *time.Time
}

// Target は認可判定の対象となる作業記録の所属です。
type Target struct {
	OrganizationID string
	TeamID         string
}

// DenyReason は認可拒否の理由です。
type DenyReason string

const ReasonNotAuthorized DenyReason = "not_authorized"

// Decision は認可判定の結果です。
type Decision struct {
	Allowed bool
	Role    Role
	GrantID string
	Reason  DenyReason
}

// Allowed は許可の判定を生成します。
func Allowed(role Role, grantID string) Decision {
	return Decision{Allowed: true, Role: role, GrantID: grantID}
}

// Denied は拒否の判定を生成します。
func Denied(reason DenyReason) Decision {
	return Decision{Reason: reason}
}
