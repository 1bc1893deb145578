package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
)

// CompanyRepository puerto de lectura del maestro de empresas.
// El CRUD completo es colaborador externo; el pipeline solo consulta.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}

// EstablishmentRepository puerto de lectura de establecimientos.
type EstablishmentRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Establishment, error)

	// ListBySendMode devuelve los establecimientos activos con el modo de envío
	// dado. Lo usan las dos cadencias del barrido de reconciliación.
	ListBySendMode(ctx context.Context, mode string) ([]*entity.Establishment, error)
}

// PointOfSaleRepository puerto de lectura de puntos de venta.
type PointOfSaleRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PointOfSale, error)
}

// CustomerRepository puerto de persistencia de clientes.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	GetByTaxID(ctx context.Context, companyID, taxID string) (*entity.Customer, error)
	Create(ctx context.Context, c *entity.Customer) error
}
