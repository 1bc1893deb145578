package billing_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/facturacion-api/internal/domain"
	"github.com/tu-usuario/facturacion-api/internal/domain/billing"
)

func TestOperationState_TransicionesPermitidas(t *testing.T) {
	s, err := billing.StateCreated.Transition(billing.StateSending)
	require.NoError(t, err)
	assert.Equal(t, billing.StateSending, s)

	for _, to := range []billing.OperationState{
		billing.StateCreated, // vuelta atrás por excepción transitoria de la autoridad
		billing.StateAccepted,
		billing.StateRejected,
		billing.StateTaxpayerException,
		billing.StateInternalError,
	} {
		got, err := billing.StateSending.Transition(to)
		require.NoError(t, err, "ENVIANDO -> %s", to)
		assert.Equal(t, to, got)
	}
}

func TestOperationState_NuncaDeCreadoATerminal(t *testing.T) {
	// un comprobante jamás pasa de CREADO a un estado terminal sin pasar por ENVIANDO
	for _, to := range []billing.OperationState{
		billing.StateAccepted, billing.StateRejected,
		billing.StateTaxpayerException, billing.StateInternalError,
	} {
		_, err := billing.StateCreated.Transition(to)
		assert.True(t, errors.Is(err, domain.ErrIllegalTransition), "CREADO -> %s debe fallar", to)
	}
}

func TestOperationState_TerminalesSonFinales(t *testing.T) {
	for _, s := range []billing.OperationState{
		billing.StateAccepted, billing.StateRejected, billing.StateTaxpayerException,
	} {
		assert.True(t, s.Terminal())
		for _, to := range []billing.OperationState{
			billing.StateCreated, billing.StateSending, billing.StateAccepted,
			billing.StateRejected, billing.StateTaxpayerException, billing.StateInternalError,
		} {
			assert.False(t, s.CanTransition(to), "%s -> %s", s, to)
		}
	}
}

func TestCancellationState(t *testing.T) {
	s, err := billing.CancelTicketRequested.Transition(billing.CancelAccepted)
	require.NoError(t, err)
	assert.True(t, s.Terminal())

	_, err = billing.CancelAccepted.Transition(billing.CancelRejected)
	assert.True(t, errors.Is(err, domain.ErrIllegalTransition))
}

// TestClassify es el canario del contrato de códigos de la autoridad: si
// alguien mueve un límite de rango, este test falla de inmediato.
func TestClassify(t *testing.T) {
	cases := []struct {
		code int
		want billing.Classification
	}{
		{0, billing.ClassAccepted},
		{99, billing.ClassObservation},
		{100, billing.ClassAuthorityException},
		{500, billing.ClassAuthorityException},
		{999, billing.ClassAuthorityException},
		{1000, billing.ClassTaxpayerException},
		{1033, billing.ClassTaxpayerException},
		{1999, billing.ClassTaxpayerException},
		{2000, billing.ClassRejected},
		{2345, billing.ClassRejected},
		{3999, billing.ClassRejected},
		{4000, billing.ClassObservation},
		{-1, billing.ClassObservation},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, billing.Classify(c.code), "código %d", c.code)
	}
}

func TestClassification_TargetState(t *testing.T) {
	assert.Equal(t, billing.StateAccepted, billing.ClassAccepted.TargetState())
	assert.Equal(t, billing.StateAccepted, billing.ClassObservation.TargetState())
	assert.Equal(t, billing.StateCreated, billing.ClassAuthorityException.TargetState())
	assert.Equal(t, billing.StateTaxpayerException, billing.ClassTaxpayerException.TargetState())
	assert.Equal(t, billing.StateRejected, billing.ClassRejected.TargetState())
}
