// Package data executes view queries for shared widgets. The query text
// is authored by project maintainers and stored alongside the view, so
// it is trusted SQL; only pagination and parameters come from the
// caller.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vizboard/vizboard/internal/share/domain"
	"github.com/vizboard/vizboard/pkg/slogx"
)

var ErrNoQuery = errors.New("view has no query")

// Runner executes view queries against a SQL database. Implements the
// share service's ViewRunner.
type Runner struct {
	DB *sql.DB
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{DB: db}
}

// RunQuery executes the view's query. Caller parameters bind as named
// arguments; negative pagination values disable the limit (used for CSV
// export). The maintainer flag is accepted for interface compatibility
// but does not change execution here.
func (r *Runner) RunQuery(
	ctx context.Context,
	view domain.View,
	q domain.DataQuery,
	maintainer bool,
) (domain.DataResult, error) {
	log := slogx.FromContext(ctx)

	if view.Query == "" {
		return domain.DataResult{}, ErrNoQuery
	}

	query := view.Query
	args := make([]any, 0, len(q.Params)+2)
	for k, v := range q.Params {
		args = append(args, sql.Named(k, v))
	}

	// Wrap rather than rewrite: the view query keeps its own ordering.
	pageNo := q.PageNo
	if q.PageSize > 0 {
		if pageNo < 1 {
			pageNo = 1
		}
		query = fmt.Sprintf("SELECT * FROM (%s) LIMIT ? OFFSET ?", query)
		args = append(args, q.PageSize, (pageNo-1)*q.PageSize)
	} else if q.Limit > 0 {
		query = fmt.Sprintf("SELECT * FROM (%s) LIMIT ?", query)
		args = append(args, q.Limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("view query failed",
			slog.Int64("view_id", view.ID),
			slog.Any("error", err),
		)
		return domain.DataResult{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.DataResult{}, err
	}

	result := domain.DataResult{
		Columns: columns,
		Rows:    []map[string]any{},
		PageNo:  pageNo,
	}

	values := make([]any, len(columns))
	scan := make([]any, len(columns))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return domain.DataResult{}, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.DataResult{}, err
	}

	result.Total = len(result.Rows)
	return result, nil
}

// normalize turns driver byte slices into strings so rows serialize as
// JSON text instead of base64.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
