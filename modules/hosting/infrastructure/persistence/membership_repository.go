package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/pkg/composables"
)

var ErrMembershipNotFound = fmt.Errorf("membership not found")

type MembershipRepository struct{}

func NewMembershipRepository() organization.MembershipReader {
	return &MembershipRepository{}
}

func (r *MembershipRepository) RoleInOrganization(ctx context.Context, userID, orgID uuid.UUID) (string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", err
	}
	query := `
		SELECT role
		FROM organization_members
		WHERE user_id = $1 AND organization_id = $2`
	rows, err := tx.Query(ctx, query, userID.String(), orgID.String())
	if err != nil {
		return "", errors.Wrap(err, "failed to query membership role")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", errors.Wrap(err, "failed to read membership role")
		}
		return "", ErrMembershipNotFound
	}
	var role string
	if err := rows.Scan(&role); err != nil {
		return "", errors.Wrap(err, "failed to scan membership role")
	}
	return role, nil
}
