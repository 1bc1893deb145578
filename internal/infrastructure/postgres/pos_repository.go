package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
)

var _ repository.PointOfSaleRepository = (*PointOfSaleRepo)(nil)

// PointOfSaleRepo implementación de PointOfSaleRepository (usable con pool o tx).
type PointOfSaleRepo struct {
	q Querier
}

// NewPointOfSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPointOfSaleRepository(q Querier) *PointOfSaleRepo {
	return &PointOfSaleRepo{q: q}
}

// GetByID obtiene un punto de venta por ID, o nil si no existe.
func (r *PointOfSaleRepo) GetByID(ctx context.Context, id string) (*entity.PointOfSale, error) {
	query := `
		SELECT id, establishment_id, code, name, active, created_at, updated_at
		FROM points_of_sale WHERE id = $1`
	var p entity.PointOfSale
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.EstablishmentID, &p.Code, &p.Name, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get point of sale: %w", err)
	}
	return &p, nil
}
