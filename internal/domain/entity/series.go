package entity

import "time"

// Series representa una serie de numeración de un punto de venta, con el
// contador de correlativos de registro (durable). El espejo volátil del
// contador vive en el almacén rápido y se reconcilia contra LastNumber dentro
// de la sección crítica de asignación.
type Series struct {
	ID            string
	PointOfSaleID string
	DocumentType  string // Catálogo 01
	Code          string // ej: "F001"
	LastNumber    int64  // último correlativo emitido (fuente de verdad)
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CounterKey clave del espejo volátil y del lock de asignación de esta serie.
func (s *Series) CounterKey() string {
	return s.PointOfSaleID + ":" + s.Code
}
