package sunat

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tu-usuario/facturacion-api/internal/application/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain"
	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
)

// SOAPClient envía comprobantes al WS billService de SUNAT (operación sendBill).
// Implementa billing.Gateway.
type SOAPClient struct {
	endpoint   string
	httpClient *http.Client
	cdrParser  billing.CDRParser
	log        *logger.Logger
}

func NewSOAPClient(endpoint string, timeout time.Duration, cdrParser billing.CDRParser, log *logger.Logger) *SOAPClient {
	return &SOAPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		cdrParser:  cdrParser,
		log:        log,
	}
}

// Submit empaqueta el XML firmado en un ZIP, lo envía a SUNAT y clasifica
// el resultado. Los errores de transporte se devuelven como domain.ErrUnreachable
// para que el caller decida reintentar.
func (c *SOAPClient) Submit(ctx context.Context, creds billing.Credentials, fileName string, signedXML []byte) (*billing.Outcome, error) {
	zipBytes, err := compressXML(signedXML, fileName+".xml")
	if err != nil {
		return nil, fmt.Errorf("sunat: empaquetar XML: %w", err)
	}

	envelope := soapEnvelope{
		XmlnsSoap: soapNS,
		XmlnsSer:  serviceNS,
		XmlnsWsse: wsseNS,
		Header: soapHeader{
			Security: wsseSecurity{
				Token: wsseUsernameToken{
					// SUNAT exige usuario = RUC + usuario SOL concatenados.
					Username: creds.RUC + creds.User,
					Password: creds.Password,
				},
			},
		},
		Body: soapReqBody{
			SendBill: &sendBillBody{
				FileName:    fileName + ".zip",
				ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
			},
		},
	}

	payload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sunat: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sunat: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapActionSend)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sunat: timeout o cancelación: %w: %w", domain.ErrUnreachable, ctx.Err())
		}
		return nil, fmt.Errorf("sunat: llamada HTTP fallida: %w: %w", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return nil, fmt.Errorf("sunat: leer respuesta: %w: %w", domain.ErrUnreachable, err)
	}

	// SUNAT entrega los Faults de validación con status 500, así que un 5xx
	// solo es caída real si el cuerpo no trae un Fault parseable.
	if resp.StatusCode >= 500 {
		if outcome, fErr := c.faultOutcome(rawBody); fErr == nil {
			return outcome, nil
		}
		return nil, fmt.Errorf("sunat: servidor respondió %d: %w", resp.StatusCode, domain.ErrUnreachable)
	}

	return c.parseResponse(rawBody)
}

// parseResponse desempaqueta la respuesta SOAP. Un Fault con código numérico
// se clasifica con las mismas reglas que un código del CDR; una respuesta
// normal trae el CDR en base64 y el veredicto sale de ahí.
func (c *SOAPClient) parseResponse(rawBody []byte) (*billing.Outcome, error) {
	var envResp soapResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, fmt.Errorf("sunat: respuesta SOAP ilegible: %w: %w", domain.ErrUnreachable, err)
	}

	if envResp.Body.Fault != nil {
		return c.outcomeFromFault(envResp.Body.Fault)
	}

	if envResp.Body.SendBillResponse == nil {
		return nil, fmt.Errorf("sunat: respuesta SOAP vacía o inesperada: %w", domain.ErrUnreachable)
	}

	cdrZip, err := base64.StdEncoding.DecodeString(
		strings.TrimSpace(envResp.Body.SendBillResponse.ApplicationResponse))
	if err != nil {
		return nil, fmt.Errorf("sunat: decodificar CDR: %w", err)
	}

	verdict, err := c.cdrParser.Parse(cdrZip)
	if err != nil {
		return nil, fmt.Errorf("sunat: interpretar CDR: %w", err)
	}

	return &billing.Outcome{
		Class:        domainbilling.Classify(verdict.Code),
		Code:         verdict.Code,
		Description:  verdict.Description,
		Observations: verdict.Observations,
		CDR:          cdrZip,
	}, nil
}

// faultOutcome intenta leer el cuerpo como un envelope con Fault.
func (c *SOAPClient) faultOutcome(rawBody []byte) (*billing.Outcome, error) {
	var envResp soapResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, err
	}
	if envResp.Body.Fault == nil {
		return nil, fmt.Errorf("sin Fault en el cuerpo")
	}
	return c.outcomeFromFault(envResp.Body.Fault)
}

var faultCodeRe = regexp.MustCompile(`\d+`)

// outcomeFromFault mapea un SOAP Fault a un veredicto. SUNAT devuelve los
// errores de validación y de servicio como Faults con código numérico
// (p. ej. "soap-env:Client.1033" o "0111").
func (c *SOAPClient) outcomeFromFault(fault *soapFault) (*billing.Outcome, error) {
	digits := faultCodeRe.FindString(fault.FaultCode)
	if digits == "" {
		digits = faultCodeRe.FindString(fault.FaultString)
	}
	if digits == "" {
		return nil, fmt.Errorf("sunat: SOAP Fault sin código [%s]: %s: %w",
			fault.FaultCode, fault.FaultString, domain.ErrUnreachable)
	}

	code, err := strconv.Atoi(digits)
	if err != nil {
		return nil, fmt.Errorf("sunat: código de Fault ilegible %q: %w", digits, domain.ErrUnreachable)
	}

	c.log.Warn().Int("codigo", code).Str("detalle", fault.FaultString).
		Msg("SUNAT devolvió SOAP Fault")

	return &billing.Outcome{
		Class:       domainbilling.Classify(code),
		Code:        code,
		Description: stripQuotes(fault.FaultString),
	}, nil
}

// compressXML empaqueta el XML firmado en un ZIP en memoria. SUNAT exige que
// el ZIP contenga un único archivo con el mismo nombre base del comprobante.
func compressXML(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// stripQuotes limpia comillas sueltas que SUNAT suele dejar en los mensajes.
func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
