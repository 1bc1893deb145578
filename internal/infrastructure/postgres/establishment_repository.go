package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
)

var _ repository.EstablishmentRepository = (*EstablishmentRepo)(nil)

// EstablishmentRepo implementación de EstablishmentRepository (usable con pool o tx).
type EstablishmentRepo struct {
	q Querier
}

// NewEstablishmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEstablishmentRepository(q Querier) *EstablishmentRepo {
	return &EstablishmentRepo{q: q}
}

// GetByID obtiene un establecimiento por ID, o nil si no existe.
func (r *EstablishmentRepo) GetByID(ctx context.Context, id string) (*entity.Establishment, error) {
	query := `
		SELECT id, company_id, code, name, send_mode, active, created_at, updated_at
		FROM establishments WHERE id = $1`
	var e entity.Establishment
	err := r.q.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.SendMode,
		&e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get establishment: %w", err)
	}
	return &e, nil
}

// ListBySendMode devuelve los establecimientos activos con el modo de envío dado.
func (r *EstablishmentRepo) ListBySendMode(ctx context.Context, mode string) ([]*entity.Establishment, error) {
	query := `
		SELECT id, company_id, code, name, send_mode, active, created_at, updated_at
		FROM establishments WHERE send_mode = $1 AND active ORDER BY company_id, code`
	rows, err := r.q.Query(ctx, query, mode)
	if err != nil {
		return nil, fmt.Errorf("list establishments: %w", err)
	}
	defer rows.Close()

	var list []*entity.Establishment
	for rows.Next() {
		var e entity.Establishment
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.SendMode,
			&e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan establishment: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
