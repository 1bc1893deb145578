// Package sunat contiene catálogos, validaciones y convenciones de nombres
// alineados a la facturación electrónica SUNAT (Perú): tipos de comprobante,
// afectaciones de IGV, series, correlativos y nombres de archivo.
package sunat

import (
	"fmt"
	"regexp"
)

// =============================================================================
// Catálogo 01 - Tipos de comprobante de pago
// =============================================================================

const (
	DocTypeFactura     = "01" // Factura electrónica
	DocTypeBoleta      = "03" // Boleta de venta electrónica (nota de venta)
	DocTypeNotaCredito = "07" // Nota de crédito
	DocTypeNotaDebito  = "08" // Nota de débito
)

// ValidDocTypes tipos de comprobante que el sistema puede emitir.
var ValidDocTypes = map[string]bool{
	DocTypeFactura:     true,
	DocTypeBoleta:      true,
	DocTypeNotaCredito: true,
	DocTypeNotaDebito:  true,
}

// DocTypeLabel devuelve la descripción corta del tipo de comprobante.
func DocTypeLabel(code string) string {
	switch code {
	case DocTypeFactura:
		return "FACTURA"
	case DocTypeBoleta:
		return "BOLETA DE VENTA"
	case DocTypeNotaCredito:
		return "NOTA DE CRÉDITO"
	case DocTypeNotaDebito:
		return "NOTA DE DÉBITO"
	default:
		return "COMPROBANTE"
	}
}

// =============================================================================
// Catálogo 07 - Afectación del IGV por línea
// La decena del código determina el balde de totales del comprobante:
// 1x gravado, 2x exonerado, 3x inafecto, 40 exportación. Los códigos de
// operación gratuita (11-17, 21, 31-37) acumulan en el total gratuito.
// =============================================================================

const (
	AffectationTaxed      = "10" // Gravado - operación onerosa
	AffectationExonerated = "20" // Exonerado - operación onerosa
	AffectationUntaxed    = "30" // Inafecto - operación onerosa
	AffectationExport     = "40" // Exportación de bienes o servicios
)

// Bucket balde de totales al que aporta una línea según su afectación.
type Bucket int

const (
	BucketTaxed Bucket = iota
	BucketExonerated
	BucketUntaxed
	BucketExport
	BucketFree
	BucketUnknown
)

// AffectationBucket clasifica un código de afectación del Catálogo 07 en su balde de totales.
func AffectationBucket(code string) Bucket {
	switch code {
	case AffectationTaxed:
		return BucketTaxed
	case AffectationExonerated:
		return BucketExonerated
	case AffectationUntaxed:
		return BucketUntaxed
	case AffectationExport:
		return BucketExport
	}
	if len(code) != 2 {
		return BucketUnknown
	}
	// Resto de códigos con decena 1, 2 o 3: retiros, bonificaciones y demás
	// operaciones gratuitas.
	switch code[0] {
	case '1', '2', '3':
		return BucketFree
	}
	return BucketUnknown
}

// =============================================================================
// Series
// Serie de 4 caracteres: letra del tipo (F factura, B boleta) + 3 alfanuméricos.
// =============================================================================

var seriesPattern = regexp.MustCompile(`^[FB][A-Z0-9]{3}$`)

// ValidateSeries verifica el formato de la serie y su coherencia con el tipo de comprobante.
func ValidateSeries(series, docType string) error {
	if !seriesPattern.MatchString(series) {
		return fmt.Errorf("sunat: serie %q inválida (se espera F/B + 3 alfanuméricos)", series)
	}
	switch docType {
	case DocTypeFactura:
		if series[0] != 'F' {
			return fmt.Errorf("sunat: la serie %q no corresponde a una factura", series)
		}
	case DocTypeBoleta:
		if series[0] != 'B' {
			return fmt.Errorf("sunat: la serie %q no corresponde a una boleta", series)
		}
	}
	return nil
}

// =============================================================================
// RUC
// 11 dígitos; el último es dígito de verificación módulo 11.
// =============================================================================

// pesos aplicados a los 10 primeros dígitos del RUC, de izquierda a derecha.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidateRUC valida longitud y dígito de verificación del RUC.
func ValidateRUC(ruc string) error {
	if len(ruc) != 11 {
		return fmt.Errorf("sunat: RUC debe tener 11 dígitos, se recibieron %d", len(ruc))
	}
	var sum int
	for i := 0; i < 10; i++ {
		d := ruc[i]
		if d < '0' || d > '9' {
			return fmt.Errorf("sunat: RUC contiene caracteres no numéricos")
		}
		sum += int(d-'0') * rucWeights[i]
	}
	check := 11 - sum%11
	if check >= 10 {
		check -= 10
	}
	if ruc[10] != byte('0'+check) {
		return fmt.Errorf("sunat: dígito de verificación del RUC inválido: esperado %d", check)
	}
	return nil
}
