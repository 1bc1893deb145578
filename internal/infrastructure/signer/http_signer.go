package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturacion-api/internal/domain"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
)

// HTTPSigner delega la generación del XML UBL y su firma al servicio externo
// de firmado. Implementa billing.DocumentSigner.
type HTTPSigner struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPSigner(endpoint string, timeout time.Duration) *HTTPSigner {
	return &HTTPSigner{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type signLine struct {
	Description string          `json:"descripcion"`
	Quantity    decimal.Decimal `json:"cantidad"`
	UnitValue   decimal.Decimal `json:"valorUnitario"`
	Affectation string          `json:"tipoAfectacion"`
	TaxPercent  decimal.Decimal `json:"porcentajeIgv"`
}

type signRequest struct {
	RUC          string          `json:"ruc"`
	CompanyName  string          `json:"razonSocial"`
	DocType      string          `json:"tipoDocumento"`
	Series       string          `json:"serie"`
	Correlativo  string          `json:"correlativo"`
	ClientName   string          `json:"clienteNombre"`
	ClientTaxID  string          `json:"clienteDocumento"`
	TotalTaxed   decimal.Decimal `json:"totalGravado"`
	TaxAmount    decimal.Decimal `json:"totalIgv"`
	Total        decimal.Decimal `json:"total"`
	Lines        []signLine      `json:"lineas"`
}

type signResponse struct {
	UnsignedXML []byte `json:"xmlSinFirma"` // base64 implícito en encoding/json
	SignedXML   []byte `json:"xmlFirmado"`
}

// GenerateAndSign arma la petición con los datos del comprobante y devuelve
// el par de XML (sin firma, firmado) que entrega el servicio. Las fallas de
// red se envuelven en domain.ErrUnreachable para que el envío se reintente.
func (s *HTTPSigner) GenerateAndSign(ctx context.Context, doc *entity.Document, details []*entity.DocumentDetail, company *entity.Company) (unsigned, signed []byte, err error) {
	reqBody := signRequest{
		RUC:         company.TaxID,
		CompanyName: company.Name,
		DocType:     doc.Type,
		Series:      doc.Series,
		Correlativo: doc.Correlativo,
		ClientName:  doc.ClientName,
		ClientTaxID: doc.ClientTaxID,
		TotalTaxed:  doc.TotalTaxed,
		TaxAmount:   doc.TaxAmount,
		Total:       doc.Total,
	}
	for _, d := range details {
		reqBody.Lines = append(reqBody.Lines, signLine{
			Description: d.Description,
			Quantity:    d.Quantity,
			UnitValue:   d.UnitValue,
			Affectation: d.Affectation,
			TaxPercent:  d.TaxPercent,
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("signer: serializar petición: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint,
		bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("signer: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("signer: llamada HTTP fallida: %w: %w", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("signer: leer respuesta: %w: %w", domain.ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return nil, nil, fmt.Errorf("signer: servicio respondió %d: %w", resp.StatusCode, domain.ErrUnreachable)
		}
		return nil, nil, fmt.Errorf("signer: servicio respondió %d: %s", resp.StatusCode, rawBody)
	}

	var out signResponse
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return nil, nil, fmt.Errorf("signer: respuesta ilegible: %w", err)
	}
	if len(out.SignedXML) == 0 {
		return nil, nil, fmt.Errorf("signer: respuesta sin XML firmado")
	}
	return out.UnsignedXML, out.SignedXML, nil
}
