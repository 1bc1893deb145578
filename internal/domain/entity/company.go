package entity

import "time"

// Modo de envío configurado por establecimiento.
const (
	SendModeImmediate = "immediate" // envío al momento de la emisión
	SendModeDeferred  = "deferred"  // barrido periódico por lotes
)

// Company representa la empresa emisora.
type Company struct {
	ID      string
	Name    string // razón social
	TaxID   string // RUC
	Address string

	// Credenciales SOL propias para el envío directo. Si DelegatedProvider es
	// true, el envío usa las credenciales del proveedor (OSE) configuradas en
	// la aplicación y estas quedan vacías.
	SolUser           string
	SolPassword       string
	DelegatedProvider bool

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Establishment representa un local anexo de la empresa.
type Establishment struct {
	ID        string
	CompanyID string
	Code      string // código de establecimiento anexo (ej: "0000")
	Name      string
	SendMode  string // immediate | deferred
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PointOfSale representa el punto de emisión más fino dentro de un establecimiento.
type PointOfSale struct {
	ID              string
	EstablishmentID string
	Code            string
	Name            string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Customer representa un cliente registrado de la empresa.
type Customer struct {
	ID           string
	CompanyID    string
	Name         string
	TaxID        string // RUC o DNI
	TaxIDType    string // Catálogo 06: "1" DNI, "6" RUC
	Address      string
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
