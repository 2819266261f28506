package sqlite

import (
	"context"

	"github.com/vizboard/vizboard/internal/share/domain"
)

type displaysRepo struct {
	q dbtx
}

func (r *displaysRepo) GetDisplayByID(ctx context.Context, id int64) (domain.Display, error) {
	var d domain.Display
	err := r.q.QueryRowContext(ctx,
		`SELECT id, project_id, name, created_at, updated_at FROM displays WHERE id = ?`, id).
		Scan(&d.ID, &d.ProjectID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Display{}, mapNotFound(err)
	}
	return d, nil
}

func (r *displaysRepo) GetSlidesByDisplayID(ctx context.Context, displayID int64) ([]domain.DisplaySlide, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, display_id, slide_index, created_at
		 FROM display_slides WHERE display_id = ? ORDER BY slide_index, id`, displayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DisplaySlide
	for rows.Next() {
		var s domain.DisplaySlide
		if err := rows.Scan(&s.ID, &s.DisplayID, &s.Index, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *displaysRepo) GetSlideWidgetsByDisplayID(ctx context.Context, displayID int64) ([]domain.SlideWidget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT sw.id, sw.slide_id, sw.widget_id
		 FROM slide_widgets sw
		 JOIN display_slides ds ON ds.id = sw.slide_id
		 WHERE ds.display_id = ?
		 ORDER BY sw.id`, displayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SlideWidget
	for rows.Next() {
		var sw domain.SlideWidget
		if err := rows.Scan(&sw.ID, &sw.SlideID, &sw.WidgetID); err != nil {
			return nil, err
		}
		out = append(out, sw)
	}
	return out, rows.Err()
}

func (r *displaysRepo) CreateDisplay(ctx context.Context, d domain.Display) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO displays (project_id, name) VALUES (?, ?)`, d.ProjectID, d.Name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *displaysRepo) CreateSlide(ctx context.Context, s domain.DisplaySlide) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO display_slides (display_id, slide_index) VALUES (?, ?)`,
		s.DisplayID, s.Index)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *displaysRepo) CreateSlideWidget(ctx context.Context, sw domain.SlideWidget) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO slide_widgets (slide_id, widget_id) VALUES (?, ?)`,
		sw.SlideID, sw.WidgetID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
