package dto

import "github.com/shopspring/decimal"

// CreateDocumentRequest petición de emisión de un comprobante.
// DocumentID es opcional: si viene informado y ya existe un comprobante CREADO
// con ese ID y la misma serie, la emisión reutiliza el correlativo ya asignado
// (camino de reingreso idempotente) en lugar de acuñar uno nuevo.
type CreateDocumentRequest struct {
	DocumentID      string               `json:"documentId,omitempty"`
	EstablishmentID string               `json:"establishmentId"`
	PointOfSaleID   string               `json:"pointOfSaleId"`
	Type            string               `json:"type"`   // "01" factura, "03" boleta
	Series          string               `json:"series"` // ej: "F001"
	CustomerID      string               `json:"customerId,omitempty"`
	ClientName      string               `json:"clientName,omitempty"`
	ClientTaxID     string               `json:"clientTaxId,omitempty"`
	Observations    string               `json:"observations,omitempty"`
	Items           []CreateDocumentItem `json:"items"`
}

// CreateDocumentItem línea de detalle de la petición.
type CreateDocumentItem struct {
	ProductID   string          `json:"productId,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitValue   decimal.Decimal `json:"unitValue"` // sin IGV
	Affectation string          `json:"affectation"`
	TaxPercent  decimal.Decimal `json:"taxPercent"`
}

// DocumentResponse respuesta de emisión y consulta.
type DocumentResponse struct {
	ID                  string                   `json:"id"`
	Type                string                   `json:"type"`
	Series              string                   `json:"series"`
	Correlativo         string                   `json:"correlativo"`
	Previous            string                   `json:"previous,omitempty"` // correlativo anterior, para formateo
	ClientName          string                   `json:"clientName,omitempty"`
	TotalTaxed          decimal.Decimal          `json:"totalTaxed"`
	TotalExonerated     decimal.Decimal          `json:"totalExonerated"`
	TotalUntaxed        decimal.Decimal          `json:"totalUntaxed"`
	TotalExport         decimal.Decimal          `json:"totalExport"`
	TotalFree           decimal.Decimal          `json:"totalFree"`
	TaxAmount           decimal.Decimal          `json:"taxAmount"`
	Total               decimal.Decimal          `json:"total"`
	OperationState      int                      `json:"operationState"`
	OperationStateLabel string                   `json:"operationStateLabel"`
	CancellationState   *int                     `json:"cancellationState,omitempty"`
	ResponseCode        string                   `json:"responseCode,omitempty"`
	ResponseDescription string                   `json:"responseDescription,omitempty"`
	Observations        string                   `json:"observations,omitempty"`
	Details             []DocumentDetailResponse `json:"details,omitempty"`
}

// DocumentDetailResponse línea de detalle de la respuesta.
type DocumentDetailResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitValue   decimal.Decimal `json:"unitValue"`
	Affectation string          `json:"affectation"`
	TaxPercent  decimal.Decimal `json:"taxPercent"`
}

// CancelDocumentRequest petición de baja de un comprobante aceptado.
type CancelDocumentRequest struct {
	Reason string `json:"reason"`
}

// ErrorResponse respuesta de error uniforme del API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
