package sunat

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/tu-usuario/facturacion-api/internal/application/billing"
)

// CDRReader extrae el veredicto de un CDR (constancia de recepción) tal como
// lo devuelve SUNAT: un ZIP con un ApplicationResponse UBL adentro.
// Implementa billing.CDRParser.
type CDRReader struct{}

func NewCDRReader() *CDRReader { return &CDRReader{} }

// Parse abre el ZIP, ubica el XML de respuesta y lee el código, la
// descripción y las observaciones del DocumentResponse.
func (r *CDRReader) Parse(cdrZip []byte) (*billing.Verdict, error) {
	zr, err := zip.NewReader(bytes.NewReader(cdrZip), int64(len(cdrZip)))
	if err != nil {
		return nil, fmt.Errorf("cdr: abrir ZIP: %w", err)
	}

	xmlBytes, err := responseXML(zr)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("cdr: parsear XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("cdr: XML sin elemento raíz")
	}

	verdict := &billing.Verdict{Code: -1}
	walk(root, verdict)
	if verdict.Code < 0 {
		return nil, fmt.Errorf("cdr: ApplicationResponse sin ResponseCode")
	}
	return verdict, nil
}

// responseXML devuelve el contenido del XML del CDR. SUNAT lo nombra con el
// prefijo "R-"; si no aparece, se toma el primer .xml del ZIP.
func responseXML(zr *zip.Reader) ([]byte, error) {
	var fallback *zip.File
	for _, f := range zr.File {
		lower := strings.ToLower(f.Name)
		if !strings.HasSuffix(lower, ".xml") {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(f.Name), "R-") {
			return readZipFile(f)
		}
		if fallback == nil {
			fallback = f
		}
	}
	if fallback != nil {
		return readZipFile(fallback)
	}
	return nil, fmt.Errorf("cdr: el ZIP no contiene ningún XML")
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("cdr: abrir %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("cdr: leer %s: %w", f.Name, err)
	}
	return data, nil
}

// walk recorre el árbol comparando por nombre local, ignorando los prefijos
// de namespace (cac:, cbc:) que varían entre emisores.
func walk(el *etree.Element, v *billing.Verdict) {
	switch localName(el) {
	case "ResponseCode":
		if v.Code < 0 {
			if code, err := strconv.Atoi(strings.TrimSpace(el.Text())); err == nil {
				v.Code = code
			}
		}
	case "Description":
		if v.Description == "" {
			v.Description = stripQuotes(el.Text())
		}
	case "Note":
		if note := stripQuotes(el.Text()); note != "" {
			v.Observations = append(v.Observations, note)
		}
	default:
		for _, child := range el.ChildElements() {
			walk(child, v)
		}
	}
}

func localName(el *etree.Element) string {
	if idx := strings.Index(el.Tag, ":"); idx != -1 {
		return el.Tag[idx+1:]
	}
	return el.Tag
}
