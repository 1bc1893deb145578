package sunat

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CorrelativoWidth ancho fijo del correlativo con ceros a la izquierda.
const CorrelativoWidth = 8

// PadCorrelativo formatea el correlativo a ancho fijo de 8 dígitos.
// Si el número excede el ancho se truncan los dígitos más significativos;
// no debería ocurrir en la práctica (una serie no supera 10^8 comprobantes).
func PadCorrelativo(n int64) string {
	s := fmt.Sprintf("%0*d", CorrelativoWidth, n)
	if len(s) > CorrelativoWidth {
		s = s[len(s)-CorrelativoWidth:]
	}
	return s
}

// DocumentFileName construye el nombre base de los artefactos de un comprobante:
// {RUC}-{tipo}-{serie}-{correlativo}. Ej: "20123456789-01-F001-00000001".
// El CDR de la SUNAT llega como "R-" + este nombre.
func DocumentFileName(ruc, docType, series, correlativo string) string {
	return ruc + "-" + docType + "-" + series + "-" + correlativo
}

// CDRFileName nombre del archivo de constancia de recepción correspondiente a
// un nombre base de comprobante.
func CDRFileName(base string) string {
	return "R-" + base
}

// NormalizeName elimina tildes y caracteres fuera de ASCII imprimible para
// usar razones sociales en nombres de archivo y rutas de forma determinista.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	for _, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
