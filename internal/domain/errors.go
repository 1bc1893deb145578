package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrConflict       = errors.New("conflicto con el estado actual")
	ErrSeriesNotFound = errors.New("serie no configurada para el punto de venta")

	// ErrLockConflict: otra asignación para la misma serie está en curso.
	// No es una falla del sistema; el caller debe reintentar tras una pausa corta.
	ErrLockConflict = errors.New("serie bloqueada por otra asignación en curso")

	// ErrIllegalTransition: transición de estado no permitida por la máquina de estados.
	ErrIllegalTransition = errors.New("transición de estado no permitida")

	// Errores del envío al WS tributario.
	ErrUnreachable        = errors.New("no se pudo contactar al servicio de la administración tributaria")
	ErrAuthorityException = errors.New("excepción del lado de la administración tributaria")
	ErrInternal           = errors.New("error interno del procesamiento")
)

// IsRetryable indica si un error de envío amerita reintento con backoff.
// Solo las fallas de conectividad y las excepciones del lado de la autoridad
// son transitorias; todo lo demás requiere intervención o es veredicto final.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrAuthorityException)
}
