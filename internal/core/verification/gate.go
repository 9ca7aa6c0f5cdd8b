package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Gate はレビュー操作の前提となる組織の本人確認状態を検査します。
// レビュアーの権限に関係なく全ての遷移に適用されます。
type Gate struct {
	lookup Lookup
}

// NewGate は Gate を生成します。
func NewGate(lookup Lookup) *Gate {
	return &Gate{lookup: lookup}
}

// Check は組織のステータスが verified の場合のみ nil を返します。
func (g *Gate) Check(ctx context.Context, organizationID string) error {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return ErrInvalidOrganizationID
	}

	status, err := g.lookup.FindVerificationStatus(ctx, organizationID)
	if err != nil {
		if !errors.Is(err, ErrOrganizationNotFound) {
			return fmt.Errorf("verification: lookup status: %w", err)
		}
		status = StatusUnverified
	}

	if status != StatusVerified {
		return &Error{OrganizationID: organizationID, Observed: status}
	}
	return nil
}
