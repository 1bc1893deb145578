// Package billing define las máquinas de estado del ciclo de vida de un
// comprobante y la clasificación de los códigos de respuesta de la
// administración tributaria.
package billing

import (
	"fmt"

	"github.com/tu-usuario/facturacion-api/internal/domain"
)

// OperationState estado del flujo principal de envío de un comprobante.
type OperationState int

const (
	StateCreated           OperationState = 0 // Creado, número asignado, pendiente de envío
	StateSending           OperationState = 1 // Envío en curso
	StateAccepted          OperationState = 2 // Aceptado por la administración tributaria (terminal)
	StateRejected          OperationState = 3 // Rechazado (terminal)
	StateTaxpayerException OperationState = 4 // Excepción de formato del contribuyente (terminal)
	StateInternalError     OperationState = 5 // Error interno durante el procesamiento
)

// operationTransitions tabla cerrada de transiciones permitidas del flujo principal.
// SENDING -> CREATED cubre la vuelta atrás ante una excepción transitoria de la
// autoridad, sin persistir estado terminal.
var operationTransitions = map[OperationState][]OperationState{
	StateCreated: {StateSending},
	StateSending: {StateCreated, StateAccepted, StateRejected, StateTaxpayerException, StateInternalError},
}

// String etiqueta legible del estado, usada en notificaciones y logs.
func (s OperationState) String() string {
	switch s {
	case StateCreated:
		return "CREADO"
	case StateSending:
		return "ENVIANDO"
	case StateAccepted:
		return "ACEPTADO"
	case StateRejected:
		return "RECHAZADO"
	case StateTaxpayerException:
		return "EXCEPCION_CONTRIBUYENTE"
	case StateInternalError:
		return "ERROR_INTERNO"
	default:
		return fmt.Sprintf("ESTADO_%d", int(s))
	}
}

// Terminal indica si el estado es final del flujo principal.
func (s OperationState) Terminal() bool {
	return s == StateAccepted || s == StateRejected || s == StateTaxpayerException
}

// CanTransition verifica contra la tabla si el paso s -> to está permitido.
func (s OperationState) CanTransition(to OperationState) bool {
	for _, t := range operationTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition valida y devuelve el nuevo estado, o ErrIllegalTransition.
func (s OperationState) Transition(to OperationState) (OperationState, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, s, to)
	}
	return to, nil
}

// CancellationState sub-estado independiente del flujo de baja
// (comunicación de baja / anulación). Nulo mientras no se solicita.
type CancellationState int

const (
	CancelTicketRequested CancellationState = 1 // Ticket de baja solicitado
	CancelAccepted        CancellationState = 2 // Baja aceptada (terminal)
	CancelRejected        CancellationState = 3 // Baja rechazada (terminal)
)

var cancellationTransitions = map[CancellationState][]CancellationState{
	CancelTicketRequested: {CancelAccepted, CancelRejected},
}

func (s CancellationState) String() string {
	switch s {
	case CancelTicketRequested:
		return "TICKET_SOLICITADO"
	case CancelAccepted:
		return "BAJA_ACEPTADA"
	case CancelRejected:
		return "BAJA_RECHAZADA"
	default:
		return fmt.Sprintf("BAJA_%d", int(s))
	}
}

// Terminal indica si el sub-estado de baja es final.
func (s CancellationState) Terminal() bool {
	return s == CancelAccepted || s == CancelRejected
}

// Transition valida y devuelve el nuevo sub-estado de baja, o ErrIllegalTransition.
func (s CancellationState) Transition(to CancellationState) (CancellationState, error) {
	for _, t := range cancellationTransitions[s] {
		if t == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, s, to)
}
