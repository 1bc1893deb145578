package sunat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/facturacion-api/pkg/sunat"
)

func TestPadCorrelativo(t *testing.T) {
	assert.Equal(t, "00000001", sunat.PadCorrelativo(1))
	assert.Equal(t, "00000002", sunat.PadCorrelativo(2))
	assert.Equal(t, "00012345", sunat.PadCorrelativo(12345))
	assert.Equal(t, "99999999", sunat.PadCorrelativo(99999999))
}

func TestPadCorrelativo_TruncaExceso(t *testing.T) {
	// caso límite documentado: más de 8 dígitos se trunca por la izquierda
	assert.Equal(t, "00000001", sunat.PadCorrelativo(100000001))
}

func TestDocumentFileName(t *testing.T) {
	got := sunat.DocumentFileName("20123456789", sunat.DocTypeFactura, "F001", "00000001")
	assert.Equal(t, "20123456789-01-F001-00000001", got)
	assert.Equal(t, "R-"+got, sunat.CDRFileName(got))
}

func TestValidateSeries(t *testing.T) {
	require.NoError(t, sunat.ValidateSeries("F001", sunat.DocTypeFactura))
	require.NoError(t, sunat.ValidateSeries("B001", sunat.DocTypeBoleta))
	assert.Error(t, sunat.ValidateSeries("B001", sunat.DocTypeFactura), "serie de boleta en factura")
	assert.Error(t, sunat.ValidateSeries("F001", sunat.DocTypeBoleta), "serie de factura en boleta")
	assert.Error(t, sunat.ValidateSeries("X001", sunat.DocTypeFactura))
	assert.Error(t, sunat.ValidateSeries("F01", sunat.DocTypeFactura))
	assert.Error(t, sunat.ValidateSeries("f001", sunat.DocTypeFactura))
}

func TestAffectationBucket(t *testing.T) {
	cases := []struct {
		code string
		want sunat.Bucket
	}{
		{"10", sunat.BucketTaxed},
		{"20", sunat.BucketExonerated},
		{"30", sunat.BucketUntaxed},
		{"40", sunat.BucketExport},
		{"11", sunat.BucketFree}, // retiro por premio
		{"15", sunat.BucketFree}, // bonificación
		{"21", sunat.BucketFree}, // exonerado: transferencia gratuita
		{"31", sunat.BucketFree}, // inafecto: retiro por bonificación
		{"99", sunat.BucketUnknown},
		{"", sunat.BucketUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, sunat.AffectationBucket(c.code), "código %q", c.code)
	}
}

func TestValidateRUC(t *testing.T) {
	// RUC con dígito de verificación correcto (módulo 11)
	require.NoError(t, sunat.ValidateRUC("20100070970"))
	assert.Error(t, sunat.ValidateRUC("20100070971"), "dígito de verificación alterado")
	assert.Error(t, sunat.ValidateRUC("201000709"), "longitud incorrecta")
	assert.Error(t, sunat.ValidateRUC("2010007097A"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Panaderia_Nunez_S.A.C.", sunat.NormalizeName("Panadería Núñez S.A.C."))
	assert.Equal(t, "ACME", sunat.NormalizeName("ACME™"))
}
