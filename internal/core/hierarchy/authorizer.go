package hierarchy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// policyModel はレビュー権限の判定ルールです。
// ポリシーは組織スコープを先に登録するため、最初に一致したルールが採用されます。
const policyModel = `
[request_definition]
r = sub, dom, team

[policy_definition]
p = sub, dom, scope, team, role, id

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.dom == p.dom && (p.scope == "organization" || (p.scope == "team" && r.team != "" && r.team == p.team))
`

const (
	policyScopeIndex = 2
	policyIDIndex    = 5
)

// Authorizer はレビュアーが作業記録を遷移させる権限を持つかを判定します。
// 判定のたびに GrantLookup から権限を読み直し、結果はキャッシュしません。
type Authorizer struct {
	grants GrantLookup
}

// NewAuthorizer は Authorizer を生成します。
func NewAuthorizer(grants GrantLookup) *Authorizer {
	return &Authorizer{grants: grants}
}

// Authorize は判定結果を返します。error は権限の参照に失敗した場合のみ返却されます。
func (a *Authorizer) Authorize(ctx context.Context, reviewerID string, target Target) (Decision, error) {
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return Decision{}, ErrInvalidReviewerID
	}
	if strings.TrimSpace(target.OrganizationID) == "" {
		return Decision{}, ErrInvalidTarget
	}

	grants, err := a.grants.FindActiveGrants(ctx, reviewerID, target.OrganizationID)
	if err != nil {
		return Decision{}, fmt.Errorf("hierarchy: lookup grants: %w", err)
	}

	policies := toPolicies(reviewerID, target.OrganizationID, grants)
	if len(policies) == 0 {
		return Denied(ReasonNotAuthorized), nil
	}

	enforcer, err := newEnforcer(policies)
	if err != nil {
		return Decision{}, err
	}

	ok, explain, err := enforcer.EnforceEx(reviewerID, target.OrganizationID, strings.TrimSpace(target.TeamID))
	if err != nil {
		return Decision{}, fmt.Errorf("hierarchy: enforce: %w", err)
	}
	if !ok || len(explain) <= policyIDIndex {
		return Denied(ReasonNotAuthorized), nil
	}

	return Allowed(roleForScope(Scope(explain[policyScopeIndex])), explain[policyIDIndex]), nil
}

func newEnforcer(policies [][]string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: parse policy model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: create enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("hierarchy: load policies: %w", err)
	}
	return enforcer, nil
}

// toPolicies は有効な権限をポリシー行に変換します。組織スコープが先頭に並びます。
func toPolicies(reviewerID, organizationID string, grants []*Grant) [][]string {
	filtered := make([]*Grant, 0, len(grants))
	seen := make(map[string]struct{}, len(grants))
	for _, g := range grants {
		if g == nil || g.RevokedAt != nil {
			continue
		}
		if g.ReviewerID != reviewerID || g.OrganizationID != organizationID {
			continue
		}
		if g.Scope != ScopeOrganization && g.Scope != ScopeTeam {
			continue
		}
		if g.Scope == ScopeTeam && strings.TrimSpace(g.TeamID) == "" {
			continue
		}
		key := strings.Join([]string{string(g.Scope), g.TeamID, g.ID}, "\x00")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		filtered = append(filtered, g)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Scope == ScopeOrganization && filtered[j].Scope != ScopeOrganization
	})

	policies := make([][]string, 0, len(filtered))
	for _, g := range filtered {
		policies = append(policies, []string{
			g.ReviewerID,
			g.OrganizationID,
			string(g.Scope),
			g.TeamID,
			string(g.Role),
			g.ID,
		})
	}
	return policies
}

func roleForScope(scope Scope) Role {
	if scope == ScopeOrganization {
		return RoleOrganizationAdmin
	}
	return RoleAssignedManager
}
