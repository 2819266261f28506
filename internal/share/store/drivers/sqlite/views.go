package sqlite

import (
	"context"

	"github.com/vizboard/vizboard/internal/share/domain"
)

type viewsRepo struct {
	q dbtx
}

func (r *viewsRepo) GetViewByID(ctx context.Context, id int64) (domain.View, error) {
	var v domain.View
	err := r.q.QueryRowContext(ctx,
		`SELECT id, project_id, name, query, created_at, updated_at FROM views WHERE id = ?`, id).
		Scan(&v.ID, &v.ProjectID, &v.Name, &v.Query, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return domain.View{}, mapNotFound(err)
	}
	return v, nil
}

func (r *viewsRepo) GetViewByWidgetID(ctx context.Context, widgetID int64) (domain.View, error) {
	var v domain.View
	err := r.q.QueryRowContext(ctx,
		`SELECT v.id, v.project_id, v.name, v.query, v.created_at, v.updated_at
		 FROM views v
		 JOIN widgets w ON w.view_id = v.id
		 WHERE w.id = ?`, widgetID).
		Scan(&v.ID, &v.ProjectID, &v.Name, &v.Query, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return domain.View{}, mapNotFound(err)
	}
	return v, nil
}

func (r *viewsRepo) CreateView(ctx context.Context, v domain.View) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO views (project_id, name, query) VALUES (?, ?, ?)`,
		v.ProjectID, v.Name, v.Query)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
