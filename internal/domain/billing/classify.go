package billing

// Classification clasificación normalizada de la respuesta de la administración
// tributaria. Los rangos numéricos son contrato de la autoridad y se reproducen
// exactamente:
//
//	0         -> aceptado
//	100-999   -> excepción del lado de la autoridad (reintentable)
//	1000-1999 -> excepción de formato del contribuyente (requiere corrección)
//	2000-3999 -> rechazado (veredicto final)
//	resto     -> observación / sin clasificar (aceptado con observaciones)
type Classification int

const (
	ClassAccepted Classification = iota
	ClassAuthorityException
	ClassTaxpayerException
	ClassRejected
	ClassObservation
)

// Classify mapea el código numérico de respuesta a su clasificación.
func Classify(code int) Classification {
	switch {
	case code == 0:
		return ClassAccepted
	case code >= 100 && code <= 999:
		return ClassAuthorityException
	case code >= 1000 && code <= 1999:
		return ClassTaxpayerException
	case code >= 2000 && code <= 3999:
		return ClassRejected
	default:
		return ClassObservation
	}
}

// TargetState estado terminal (o de retorno) del flujo principal que
// corresponde a cada clasificación. ClassAuthorityException regresa el
// comprobante a CREADO para que el reintento lo retome.
func (c Classification) TargetState() OperationState {
	switch c {
	case ClassAccepted, ClassObservation:
		return StateAccepted
	case ClassAuthorityException:
		return StateCreated
	case ClassTaxpayerException:
		return StateTaxpayerException
	case ClassRejected:
		return StateRejected
	default:
		return StateInternalError
	}
}

func (c Classification) String() string {
	switch c {
	case ClassAccepted:
		return "ACEPTADO"
	case ClassAuthorityException:
		return "EXCEPCION_AUTORIDAD"
	case ClassTaxpayerException:
		return "EXCEPCION_CONTRIBUYENTE"
	case ClassRejected:
		return "RECHAZADO"
	default:
		return "OBSERVACION"
	}
}
