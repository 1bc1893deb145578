// Package pdf implementa la representación impresa del comprobante electrónico
// (factura o boleta de venta) usando Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RUC  │  Tipo + Serie-Correlativo     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ADQUIRIENTE: Nombre + RUC/DNI                               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | V.Unit | Afect | Importe        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES por afectación + IGV + TOTAL A PAGAR                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR + leyenda                                        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/pkg/sunat"
)

var (
	colorPrimary = &props.Color{Red: 127, Green: 0, Blue: 30}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// MarotoRenderer implementa billing.Renderer usando Maroto v2.
type MarotoRenderer struct{}

// NewMarotoRenderer construye el renderizador.
func NewMarotoRenderer() *MarotoRenderer { return &MarotoRenderer{} }

// Render genera la representación impresa y devuelve sus bytes.
func (r *MarotoRenderer) Render(
	_ context.Context,
	doc *entity.Document,
	details []*entity.DocumentDetail,
	company *entity.Company,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(sunat.DocTypeLabel(doc.Type), true).
		WithAuthor(company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(adquirienteRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, dr := range tableDetailRows(details) {
		m.AddRows(dr)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(doc)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(doc, company)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// headerRow: razón social + RUC (izq) y tipo + serie-correlativo (der).
func headerRow(doc *entity.Document, company *entity.Company) core.Row {
	numero := doc.Series + "-" + doc.Correlativo
	fecha := doc.CreatedAt.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RUC: "+company.TaxID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(strings.ToUpper(sunat.DocTypeLabel(doc.Type)), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(numero, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// adquirienteRow: datos del cliente, registrado o de texto libre.
func adquirienteRow(doc *entity.Document) core.Row {
	docCliente := doc.ClientTaxID
	if docCliente == "" {
		docCliente = "—"
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("ADQUIRIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(doc.ClientName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New("RUC/DNI: "+docCliente, props.Text{
				Size: 8, Top: 12, Color: colorGray,
			}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("V. Unit.", 2, align.Right),
		h("Afect.", 1, align.Center),
		h("Importe", 2, align.Right),
	)
}

// tableDetailRows: una fila por línea de detalle.
func tableDetailRows(details []*entity.DocumentDetail) []core.Row {
	result := make([]core.Row, 0, len(details))
	for _, d := range details {
		importe := d.Quantity.Mul(d.UnitValue)
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				d.Quantity.StringFixed(2),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(6).Add(text.New(
				d.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"S/ "+d.UnitValue.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				d.Affectation,
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				"S/ "+importe.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRows: bloque de totales por afectación, solo las líneas con importe.
func totalsRows(doc *entity.Document) []core.Row {
	type pair struct {
		label string
		value decimal.Decimal
		grand bool
	}
	pairs := []pair{
		{label: "Op. Gravadas:", value: doc.TotalTaxed},
		{label: "Op. Exoneradas:", value: doc.TotalExonerated},
		{label: "Op. Inafectas:", value: doc.TotalUntaxed},
		{label: "Op. Exportación:", value: doc.TotalExport},
		{label: "Op. Gratuitas:", value: doc.TotalFree},
		{label: "IGV:", value: doc.TaxAmount},
		{label: "TOTAL A PAGAR:", value: doc.Total, grand: true},
	}

	rows := make([]core.Row, 0, len(pairs))
	for _, p := range pairs {
		if p.value.IsZero() && !p.grand {
			continue
		}
		size, style, color := 9.0, fontstyle.Normal, &props.Color{}
		if p.grand {
			size, style, color = 10.0, fontstyle.Bold, colorPrimary
		}
		rows = append(rows, row.New(6).Add(
			col.New(6),
			col.New(3).Add(text.New(p.label, props.Text{
				Style: fontstyle.Bold, Size: size, Align: align.Right,
				Color: color, Right: 2,
			})),
			col.New(3).Add(text.New("S/ "+p.value.StringFixed(2), props.Text{
				Style: style, Size: size, Align: align.Right,
				Color: color, Right: 1,
			})),
		))
	}
	return rows
}

// footerRows: código QR de verificación + leyenda.
func footerRows(doc *entity.Document, company *entity.Company) []core.Row {
	qrData := strings.Join([]string{
		company.TaxID,
		doc.Type,
		doc.Series,
		doc.Correlativo,
		doc.TaxAmount.StringFixed(2),
		doc.Total.StringFixed(2),
		doc.CreatedAt.Format("2006-01-02"),
		"6",
		doc.ClientTaxID,
	}, "|")

	return []core.Row{
		row.New(40).Add(
			col.New(4).Add(code.NewQr(qrData, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Representación impresa de la "+
					strings.ToUpper(sunat.DocTypeLabel(doc.Type))+".", props.Text{
					Style: fontstyle.Bold, Size: 9, Top: 8, Left: 3, Color: colorPrimary,
				}),
				text.New("Consulte el comprobante en el portal de SUNAT\ncon el código QR adjunto.", props.Text{
					Size: 8, Top: 16, Left: 3, Color: colorGray,
				}),
			),
		),
	}
}
