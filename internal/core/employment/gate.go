package employment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Gate は社員が組織に対して書き込み可能かどうかを判定します。
type Gate struct {
	lookup Lookup
	clock  Clock
}

// NewGate は Gate を生成します。
func NewGate(lookup Lookup, clock Clock) *Gate {
	if clock == nil {
		clock = realClock{}
	}
	return &Gate{lookup: lookup, clock: clock}
}

// Check は雇用関係が有効であれば nil を返します。
// 雇用関係が存在しない場合も inactive として ErrEmploymentInactive を返します。
func (g *Gate) Check(ctx context.Context, employeeID, organizationID string) error {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return ErrInvalidEmployeeID
	}
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return ErrInvalidOrganizationID
	}

	rel, err := g.lookup.FindRelationship(ctx, employeeID, organizationID)
	if err != nil {
		if errors.Is(err, ErrRelationshipNotFound) {
			return fmt.Errorf("employee %s in organization %s: %w", employeeID, organizationID, ErrEmploymentInactive)
		}
		return fmt.Errorf("employment: lookup relationship: %w", err)
	}

	if !rel.ActiveAt(g.clock.Now()) {
		return fmt.Errorf("employee %s in organization %s: %w", employeeID, organizationID, ErrEmploymentInactive)
	}
	return nil
}
