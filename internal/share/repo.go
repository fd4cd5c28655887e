package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the single point of SQL access to the projects table.
// createdAt and lastEdited are owned by the schema (column defaults and
// the update_projects trigger), never written from here.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// List returns listing rows, newest first with uid as tie-breaker so
// offset/limit pages stay stable. A nil page returns the full set.
func (r *Repo) List(ctx context.Context, page *Page) ([]Summary, error) {
	q := `
select uid, author, name, lastEdited
from projects
order by createdAt desc, uid asc;
`
	args := []any{}
	if page != nil {
		q = `
select uid, author, name, lastEdited
from projects
order by createdAt desc, uid asc
offset $1 limit $2;
`
		args = append(args, page.From, page.Limit)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Summary, 0, 16)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.UID, &s.Author, &s.Name, &s.LastEdited); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get fetches one project by uid. Returns (nil, nil) when no row
// matches: an absent project is an empty document, not an error.
func (r *Repo) Get(ctx context.Context, uid string) (*Record, error) {
	const q = `
select uid, auth, author, name, lastEdited, data
from projects
where uid = $1;
`
	var rec Record
	err := r.db.QueryRow(ctx, q, uid).
		Scan(&rec.UID, &rec.Auth, &rec.Author, &rec.Name, &rec.LastEdited, &rec.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) Insert(ctx context.Context, uid, auth, author, name, data string) error {
	const q = `
insert into projects (uid, auth, author, name, data)
values ($1, $2, $3, $4, $5);
`
	_, err := r.db.Exec(ctx, q, uid, auth, author, name, data)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("uid %q: %w", uid, ErrConflict)
	}
	return err
}

// Update rewrites author, name and data for the row matching both uid
// and auth. The update_projects trigger re-stamps lastEdited whenever
// the row genuinely changes. The bool reports whether a row matched.
func (r *Repo) Update(ctx context.Context, uid, auth, author, name, data string) (bool, error) {
	const q = `
update projects
set author = $3, name = $4, data = $5
where uid = $1 and auth = $2;
`
	ct, err := r.db.Exec(ctx, q, uid, auth, author, name, data)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// Delete removes the row matching both uid and auth. The bool reports
// whether a row matched; a miss is not an error.
func (r *Repo) Delete(ctx context.Context, uid, auth string) (bool, error) {
	const q = `
delete from projects
where uid = $1 and auth = $2;
`
	ct, err := r.db.Exec(ctx, q, uid, auth)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
