package sqlite

import (
	"context"

	"github.com/vizboard/vizboard/internal/share/domain"
)

type organizationsRepo struct {
	q dbtx
}

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id int64) (domain.Organization, error) {
	var o domain.Organization
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, description, member_count, created_at, updated_at
		 FROM organizations WHERE id = ?`, id).
		Scan(&o.ID, &o.Name, &o.Description, &o.MemberCount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return o, nil
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO organizations (name, description, member_count) VALUES (?, ?, ?)`,
		o.Name, o.Description, o.MemberCount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *organizationsRepo) IncrementMemberCount(ctx context.Context, orgID int64) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE organizations
		 SET member_count = member_count + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, orgID)
	return err
}

type membershipsRepo struct {
	q dbtx
}

func (r *membershipsRepo) GetMembership(ctx context.Context, userID, orgID int64) (domain.OrganizationMembership, error) {
	var m domain.OrganizationMembership
	err := r.q.QueryRowContext(ctx,
		`SELECT id, org_id, user_id, role, created_at
		 FROM organization_members WHERE user_id = ? AND org_id = ?`,
		userID, orgID).
		Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return domain.OrganizationMembership{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.OrganizationMembership) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO organization_members (org_id, user_id, role) VALUES (?, ?, ?)`,
		m.OrgID, m.UserID, m.Role)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}
