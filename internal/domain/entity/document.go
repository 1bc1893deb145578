package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-api/internal/domain/billing"
)

// Document representa la cabecera de un comprobante electrónico (factura o
// boleta de venta). La tupla (empresa, establecimiento, punto de venta, tipo,
// serie, correlativo) es única; los correlativos de una serie son
// estrictamente crecientes.
type Document struct {
	ID              string
	CompanyID       string
	EstablishmentID string
	PointOfSaleID   string
	CustomerID      string // vacío si el cliente no está registrado (identidad libre abajo)
	UserID          string // usuario emisor

	Type        string // Catálogo 01: "01" factura, "03" boleta
	Series      string // ej: "F001"
	Correlativo string // ancho fijo 8, ceros a la izquierda

	// Identidad libre del cliente cuando no existe registro de cliente.
	ClientName  string
	ClientTaxID string

	// Totales por balde de afectación (Catálogo 07).
	TotalTaxed      decimal.Decimal // gravado
	TotalExonerated decimal.Decimal // exonerado
	TotalUntaxed    decimal.Decimal // inafecto
	TotalExport     decimal.Decimal // exportación
	TotalFree       decimal.Decimal // operaciones gratuitas
	TaxAmount       decimal.Decimal // IGV
	TaxRate         decimal.Decimal // tasa vigente (ej: 0.18)
	Total           decimal.Decimal // total a pagar

	OperationState    billing.OperationState
	CancellationState *billing.CancellationState // nulo si no hay baja en curso

	// Respuesta de la administración tributaria.
	ResponseCode        string
	ResponseDescription string
	Observations        string // observaciones concatenadas devueltas por la autoridad

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FreeTextCustomer indica que la identidad del cliente vive en el comprobante,
// no en el maestro de clientes.
func (d *Document) FreeTextCustomer() bool {
	return d.CustomerID == ""
}

// DocumentDetail representa una línea de detalle de un comprobante.
type DocumentDetail struct {
	ID          string
	DocumentID  string
	ProductID   string // opcional: línea de texto libre si está vacío
	Description string
	Quantity    decimal.Decimal
	UnitValue   decimal.Decimal // valor unitario sin IGV
	Affectation string          // Catálogo 07 (ej: "10" gravado)
	TaxPercent  decimal.Decimal // porcentaje de IGV de la línea (ej: 18)
}
