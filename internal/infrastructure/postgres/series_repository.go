package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturacion-api/internal/domain"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
)

var _ repository.SeriesRepository = (*SeriesRepo)(nil)

// SeriesRepo implementación de SeriesRepository (usable con pool o tx).
type SeriesRepo struct {
	q Querier
}

// NewSeriesRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSeriesRepository(q Querier) *SeriesRepo {
	return &SeriesRepo{q: q}
}

// Create registra una serie nueva con su contador en cero.
func (r *SeriesRepo) Create(ctx context.Context, s *entity.Series) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `
		INSERT INTO series (id, point_of_sale_id, doc_type, code, last_number, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.PointOfSaleID, s.DocumentType, s.Code, s.LastNumber, s.Active,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("serie %s ya existe: %w", s.Code, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert series: %w", err)
	}
	return nil
}

// GetByPOSAndCode devuelve la serie del punto de venta, o nil si no existe.
func (r *SeriesRepo) GetByPOSAndCode(ctx context.Context, posID, code string) (*entity.Series, error) {
	query := `
		SELECT id, point_of_sale_id, doc_type, code, last_number, active, created_at, updated_at
		FROM series WHERE point_of_sale_id = $1 AND code = $2`
	var s entity.Series
	err := r.q.QueryRow(ctx, query, posID, code).Scan(
		&s.ID, &s.PointOfSaleID, &s.DocumentType, &s.Code, &s.LastNumber,
		&s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return &s, nil
}

// UpdateLastNumber persiste el último correlativo emitido de la serie.
func (r *SeriesRepo) UpdateLastNumber(ctx context.Context, id string, lastNumber int64) error {
	query := `UPDATE series SET last_number = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, lastNumber, time.Now())
	if err != nil {
		return fmt.Errorf("update series counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("serie %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByPOS lista las series del punto de venta.
func (r *SeriesRepo) ListByPOS(ctx context.Context, posID string) ([]*entity.Series, error) {
	query := `
		SELECT id, point_of_sale_id, doc_type, code, last_number, active, created_at, updated_at
		FROM series WHERE point_of_sale_id = $1 ORDER BY code`
	rows, err := r.q.Query(ctx, query, posID)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var list []*entity.Series
	for rows.Next() {
		var s entity.Series
		if err := rows.Scan(&s.ID, &s.PointOfSaleID, &s.DocumentType, &s.Code,
			&s.LastNumber, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
