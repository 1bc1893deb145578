package sunat

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturacion-api/internal/application/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain"
	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
)

var testCreds = billing.Credentials{RUC: "20100070970", User: "MODDATOS", Password: "moddatos"}

func newTestClient(endpoint string) *SOAPClient {
	return NewSOAPClient(endpoint, 5*time.Second, NewCDRReader(), logger.Nop())
}

func TestSubmit_AceptadoConCDR(t *testing.T) {
	cdrZip := buildCDRZip(t, "R-20100070970-01-F001-00000042.xml", cdrAccepted)

	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		fmt.Fprintf(w, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:sendBillResponse xmlns:ns2="http://service.sunat.gob.pe">
      <applicationResponse>%s</applicationResponse>
    </ns2:sendBillResponse>
  </soap:Body>
</soap:Envelope>`, base64.StdEncoding.EncodeToString(cdrZip))
	}))
	defer srv.Close()

	outcome, err := newTestClient(srv.URL).Submit(context.Background(), testCreds,
		"20100070970-01-F001-00000042", []byte("<firmado/>"))
	require.NoError(t, err)

	assert.Equal(t, domainbilling.ClassAccepted, outcome.Class)
	assert.Equal(t, 0, outcome.Code)
	assert.NotEmpty(t, outcome.CDR)

	// Credenciales WS-Security: usuario = RUC + usuario SOL.
	assert.Contains(t, gotBody, "20100070970MODDATOS")
	assert.Contains(t, gotBody, "20100070970-01-F001-00000042.zip")
}

func TestSubmit_FaultConCodigoNumerico(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		// SUNAT devuelve los Faults de validación con status 500.
		io.WriteString(w, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap-env:Client.1033</faultcode>
      <faultstring>El comprobante fue registrado previamente</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`)
	}))
	defer srv.Close()

	outcome, err := newTestClient(srv.URL).Submit(context.Background(), testCreds,
		"20100070970-01-F001-00000042", []byte("<firmado/>"))
	require.NoError(t, err)

	assert.Equal(t, 1033, outcome.Code)
	assert.Equal(t, domainbilling.ClassTaxpayerException, outcome.Class)
	assert.Contains(t, outcome.Description, "registrado previamente")
}

func TestSubmit_ServidorCaidoEsReintentable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), testCreds,
		"x", []byte("<firmado/>"))
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
}

func TestSubmit_ConexionRechazadaEsReintentable(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // puerto cerrado

	_, err := newTestClient(srv.URL).Submit(context.Background(), testCreds,
		"x", []byte("<firmado/>"))
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
}

func TestOutcomeFromFault_SinCodigo(t *testing.T) {
	c := newTestClient("http://localhost")
	_, err := c.outcomeFromFault(&soapFault{FaultCode: "soap-env:Server", FaultString: "sin detalle"})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err), "un Fault sin código se trata como transitorio")
}

func TestCompressXML(t *testing.T) {
	zipBytes, err := compressXML([]byte("<xml/>"), "doc.xml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(zipBytes), "PK"))
}
