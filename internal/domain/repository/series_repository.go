package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
)

// SeriesRepository define el puerto de persistencia del contador durable de series.
type SeriesRepository interface {
	Create(ctx context.Context, s *entity.Series) error

	// GetByPOSAndCode devuelve la serie del punto de venta, o nil si no existe.
	GetByPOSAndCode(ctx context.Context, posID, code string) (*entity.Series, error)

	// UpdateLastNumber persiste el último correlativo emitido. Se invoca solo
	// dentro de la sección crítica del asignador, con el lock de la serie tomado.
	UpdateLastNumber(ctx context.Context, id string, lastNumber int64) error

	ListByPOS(ctx context.Context, posID string) ([]*entity.Series, error)
}
