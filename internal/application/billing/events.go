package billing

import "fmt"

// Tipos de evento publicados por el canal de notificaciones.
const (
	EventDocumentCreated = "document-created"
	EventDocumentUpdated = "document-updated"
	EventStatusMessage   = "status-message"
)

// Event evento de ciclo de vida empujado a los clientes suscritos a la sala
// de la empresa+establecimiento.
type Event struct {
	Type         string   `json:"type"`
	DocumentID   string   `json:"documentId"`
	StateCode    int      `json:"stateCode"`
	StateLabel   string   `json:"stateLabel"`
	Message      string   `json:"message"`
	Loading      bool     `json:"loading"`
	SendMode     string   `json:"sendMode,omitempty"`
	ResponseCode string   `json:"responseCode,omitempty"`
	Observations []string `json:"observations,omitempty"`
	ArtifactRefs []string `json:"artifactRefs,omitempty"`
}

// RoomID construye el identificador de sala:
// room_{tipoDocumento}_emp-{empresa}_est-{establecimiento}.
func RoomID(documentKind, companyID, establishmentID string) string {
	return fmt.Sprintf("room_%s_emp-%s_est-%s", documentKind, companyID, establishmentID)
}
