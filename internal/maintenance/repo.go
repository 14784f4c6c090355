package maintenance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Get returns the first (expected only) maintenance row.
// ErrFlagNotFound when the table is empty.
func (r *Repo) Get(ctx context.Context) (*Flag, error) {
	var flag Flag
	err := r.db.QueryRow(
		ctx,
		`SELECT id, enabled FROM maintenance LIMIT 1;`,
	).Scan(&flag.ID, &flag.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	if err != nil {
		return nil, err
	}

	return &flag, nil
}

func (r *Repo) SetEnabled(ctx context.Context, id int, enabled bool) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE maintenance SET enabled = $1 WHERE id = $2;`,
		enabled, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}
