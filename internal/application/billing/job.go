package billing

// SubmissionJob carga útil de un trabajo de envío. Los trabajos son efímeros:
// los crea la emisión o el barrido de reconciliación, los consume el pool de
// workers, se descartan al éxito y se retienen al agotar reintentos.
type SubmissionJob struct {
	DocumentID string
	RoomID     string
	FileName   string // nombre base de los artefactos

	// Contenido recién generado; vacío si OnDisk o Regenerate.
	UnsignedXML []byte
	SignedXML   []byte

	// OnDisk indica que los artefactos sin firmar y firmado ya existen en el
	// almacén: el worker carga de ahí en lugar de usar contenido embebido.
	OnDisk bool

	// Regenerate pide al worker repetir la generación y firma del XML antes de
	// enviar (recuperación de comprobantes sin artefacto firmado).
	Regenerate bool

	SendMode string // immediate | deferred

	// SaveArtifacts: si es false solo se persiste la constancia de recepción
	// (recuperación de comprobantes ya firmados en un intento previo).
	SaveArtifacts bool

	// Cancellation marca un trabajo del flujo de baja (comunicación de baja).
	Cancellation bool
}
