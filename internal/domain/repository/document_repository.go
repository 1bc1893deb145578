package repository

import (
	"context"
	"time"

	"github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para comprobantes y detalles.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	CreateDetail(ctx context.Context, detail *entity.DocumentDetail) error

	// Update actualiza estado, sub-estado de baja, respuesta de la autoridad y
	// observaciones del comprobante.
	Update(ctx context.Context, doc *entity.Document) error

	GetByID(ctx context.Context, id string) (*entity.Document, error)

	// GetByNumber busca un comprobante por su número completo. Es la re-verificación
	// de duplicados dentro de la transacción de emisión.
	GetByNumber(ctx context.Context, posID, docType, series, correlativo string) (*entity.Document, error)

	GetDetails(ctx context.Context, documentID string) ([]*entity.DocumentDetail, error)

	// ListByStates devuelve los comprobantes de un establecimiento en alguno de
	// los estados dados, creados antes de la marca indicada. Lo usa el barrido
	// de reconciliación.
	ListByStates(ctx context.Context, establishmentID string, states []billing.OperationState, before time.Time) ([]*entity.Document, error)

	// ListByCompany lista comprobantes de la empresa, más recientes primero.
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error)
}
