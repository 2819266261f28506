package sqlite

import (
	"context"
	"database/sql"

	"github.com/vizboard/vizboard/internal/share/domain"
)

type widgetsRepo struct {
	q dbtx
}

const widgetColumns = `id, project_id, view_id, name, config, created_at, updated_at`

func (r *widgetsRepo) GetWidgetByID(ctx context.Context, id int64) (domain.Widget, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+widgetColumns+` FROM widgets WHERE id = ?`, id)

	var w domain.Widget
	err := row.Scan(&w.ID, &w.ProjectID, &w.ViewID, &w.Name, &w.Config, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return domain.Widget{}, mapNotFound(err)
	}
	return w, nil
}

func (r *widgetsRepo) GetWidgetsByDisplayID(ctx context.Context, displayID int64) ([]domain.Widget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT DISTINCT w.id, w.project_id, w.view_id, w.name, w.config, w.created_at, w.updated_at
		 FROM widgets w
		 JOIN slide_widgets sw ON sw.widget_id = w.id
		 JOIN display_slides ds ON ds.id = sw.slide_id
		 WHERE ds.display_id = ?
		 ORDER BY w.id`, displayID)
	if err != nil {
		return nil, err
	}
	return collectWidgets(rows)
}

func (r *widgetsRepo) GetWidgetsByDashboardID(ctx context.Context, dashboardID int64) ([]domain.Widget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT DISTINCT w.id, w.project_id, w.view_id, w.name, w.config, w.created_at, w.updated_at
		 FROM widgets w
		 JOIN dashboard_widgets dw ON dw.widget_id = w.id
		 WHERE dw.dashboard_id = ?
		 ORDER BY w.id`, dashboardID)
	if err != nil {
		return nil, err
	}
	return collectWidgets(rows)
}

func (r *widgetsRepo) CreateWidget(ctx context.Context, w domain.Widget) (int64, error) {
	config := w.Config
	if config == "" {
		config = "{}"
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO widgets (project_id, view_id, name, config) VALUES (?, ?, ?, ?)`,
		w.ProjectID, w.ViewID, w.Name, config)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func collectWidgets(rows *sql.Rows) ([]domain.Widget, error) {
	defer rows.Close()

	var out []domain.Widget
	for rows.Next() {
		var w domain.Widget
		if err := rows.Scan(&w.ID, &w.ProjectID, &w.ViewID, &w.Name, &w.Config, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
