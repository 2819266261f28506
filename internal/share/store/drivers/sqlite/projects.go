package sqlite

import (
	"context"

	"github.com/vizboard/vizboard/internal/share/domain"
)

type projectsRepo struct {
	q dbtx
}

func (r *projectsRepo) GetProjectByID(ctx context.Context, id int64) (domain.Project, error) {
	var p domain.Project
	err := r.q.QueryRowContext(ctx,
		`SELECT id, org_id, name, created_at, updated_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Project{}, mapNotFound(err)
	}
	return p, nil
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO projects (org_id, name) VALUES (?, ?)`, p.OrgID, p.Name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *projectsRepo) GetProjectPermission(ctx context.Context, projectID, userID int64) (domain.ProjectPermission, error) {
	var p domain.ProjectPermission
	err := r.q.QueryRowContext(ctx,
		`SELECT project_id, user_id, maintainer, download
		 FROM project_permissions WHERE project_id = ? AND user_id = ?`,
		projectID, userID).
		Scan(&p.ProjectID, &p.UserID, &p.Maintainer, &p.Download)
	if err != nil {
		return domain.ProjectPermission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *projectsRepo) UpsertProjectPermission(ctx context.Context, p domain.ProjectPermission) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO project_permissions (project_id, user_id, maintainer, download)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (project_id, user_id)
		 DO UPDATE SET maintainer = excluded.maintainer, download = excluded.download`,
		p.ProjectID, p.UserID, p.Maintainer, p.Download)
	return err
}
