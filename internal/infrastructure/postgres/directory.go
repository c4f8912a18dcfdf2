package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallercloud/turnero/internal/domain"
)

// Directory implements domain.WorkshopDirectory as an unlocked read-only
// façade over the workshops table, for the Status/List endpoints and
// external admin display.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) Get(ctx context.Context, id uuid.UUID) (domain.Workshop, error) {
	var w domain.Workshop
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, address, logo, capacity FROM workshops WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Address, &w.Logo, &w.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	if err != nil {
		return domain.Workshop{}, domain.Wrap(domain.KindInternal, "get workshop", err)
	}
	return w, nil
}

func (d *Directory) List(ctx context.Context) ([]domain.Workshop, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, name, address, logo, capacity FROM workshops ORDER BY name ASC`)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "list workshops", err)
	}
	defer rows.Close()

	var out []domain.Workshop
	for rows.Next() {
		var w domain.Workshop
		if err := rows.Scan(&w.ID, &w.Name, &w.Address, &w.Logo, &w.Capacity); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
