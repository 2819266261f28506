package sqlite

import (
	"context"

	"github.com/vizboard/vizboard/internal/share/domain"
)

type dashboardsRepo struct {
	q dbtx
}

func (r *dashboardsRepo) GetDashboardByID(ctx context.Context, id int64) (domain.Dashboard, error) {
	var d domain.Dashboard
	err := r.q.QueryRowContext(ctx,
		`SELECT id, project_id, name, created_at, updated_at FROM dashboards WHERE id = ?`, id).
		Scan(&d.ID, &d.ProjectID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Dashboard{}, mapNotFound(err)
	}
	return d, nil
}

func (r *dashboardsRepo) GetDashboardWidgetsByDashboardID(ctx context.Context, dashboardID int64) ([]domain.DashboardWidget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, dashboard_id, widget_id
		 FROM dashboard_widgets WHERE dashboard_id = ? ORDER BY id`, dashboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DashboardWidget
	for rows.Next() {
		var dw domain.DashboardWidget
		if err := rows.Scan(&dw.ID, &dw.DashboardID, &dw.WidgetID); err != nil {
			return nil, err
		}
		out = append(out, dw)
	}
	return out, rows.Err()
}

func (r *dashboardsRepo) CreateDashboard(ctx context.Context, d domain.Dashboard) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO dashboards (project_id, name) VALUES (?, ?)`, d.ProjectID, d.Name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *dashboardsRepo) CreateDashboardWidget(ctx context.Context, dw domain.DashboardWidget) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO dashboard_widgets (dashboard_id, widget_id) VALUES (?, ?)`,
		dw.DashboardID, dw.WidgetID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
