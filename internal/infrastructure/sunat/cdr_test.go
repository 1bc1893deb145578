package sunat

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCDRZip(t *testing.T, name, xmlContent string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create(name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(xmlContent))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const cdrAccepted = `<?xml version="1.0" encoding="UTF-8"?>
<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"
    xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
    xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cbc:ID>R-20100070970-01-F001-00000042</cbc:ID>
  <cac:DocumentResponse>
    <cac:Response>
      <cbc:ResponseCode>0</cbc:ResponseCode>
      <cbc:Description>La Factura numero F001-00000042, ha sido aceptada</cbc:Description>
    </cac:Response>
  </cac:DocumentResponse>
  <cbc:Note>"4252 - Observacion de ejemplo"</cbc:Note>
</ar:ApplicationResponse>`

func TestCDRReader_Aceptado(t *testing.T) {
	zipBytes := buildCDRZip(t, "R-20100070970-01-F001-00000042.xml", cdrAccepted)

	verdict, err := NewCDRReader().Parse(zipBytes)
	require.NoError(t, err)

	assert.Equal(t, 0, verdict.Code)
	assert.Contains(t, verdict.Description, "aceptada")
	require.Len(t, verdict.Observations, 1)
	assert.Equal(t, "4252 - Observacion de ejemplo", verdict.Observations[0])
}

func TestCDRReader_Rechazado(t *testing.T) {
	const rejected = `<?xml version="1.0"?>
<ApplicationResponse xmlns:cac="x" xmlns:cbc="y">
  <cac:DocumentResponse>
    <cac:Response>
      <cbc:ResponseCode>2345</cbc:ResponseCode>
      <cbc:Description>Comprobante rechazado</cbc:Description>
    </cac:Response>
  </cac:DocumentResponse>
</ApplicationResponse>`
	zipBytes := buildCDRZip(t, "respuesta.xml", rejected)

	verdict, err := NewCDRReader().Parse(zipBytes)
	require.NoError(t, err)

	assert.Equal(t, 2345, verdict.Code)
	assert.Equal(t, "Comprobante rechazado", verdict.Description)
	assert.Empty(t, verdict.Observations)
}

func TestCDRReader_ZipSinXML(t *testing.T) {
	zipBytes := buildCDRZip(t, "leeme.txt", "no soy un CDR")

	_, err := NewCDRReader().Parse(zipBytes)
	assert.Error(t, err)
}

func TestCDRReader_SinResponseCode(t *testing.T) {
	zipBytes := buildCDRZip(t, "R-x.xml", `<ApplicationResponse><ID>1</ID></ApplicationResponse>`)

	_, err := NewCDRReader().Parse(zipBytes)
	assert.Error(t, err)
}
