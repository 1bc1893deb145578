package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturacion-api/internal/application/dto"
	"github.com/tu-usuario/facturacion-api/internal/domain"
	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
)

type createFixture struct {
	uc       *CreateDocumentUseCase
	docRepo  *fakeDocRepo
	custRepo *fakeCustomerRepo
	store    *fakeStore
	queue    *fakeEnqueuer
	notifier *fakeNotifier
	signer   *fakeSigner
	est      *entity.Establishment
}

func newCreateFixture(t *testing.T, sendMode string) *createFixture {
	t.Helper()
	company := &entity.Company{ID: "emp-1", Name: "ACME", TaxID: "20100070970", Active: true}
	est := &entity.Establishment{ID: "est-1", CompanyID: "emp-1", Code: "0001",
		SendMode: sendMode, Active: true}
	pos := &entity.PointOfSale{ID: "pos-1", EstablishmentID: "est-1", Code: "C01", Active: true}

	docRepo := newFakeDocRepo()
	custRepo := &fakeCustomerRepo{}
	store := newFakeStore()
	queue := &fakeEnqueuer{}
	notifier := &fakeNotifier{}
	sig := &fakeSigner{unsigned: []byte("<xml/>"), signed: []byte("<firmado/>")}

	seriesRepo := newFakeSeriesRepo(testSeries(0))
	allocator := NewSequenceAllocator(newFakeLocker(), newFakeCounterCache(), seriesRepo, logger.Nop())

	uc := NewCreateDocumentUseCase(
		&fakeTxRunner{docRepo: docRepo, customerRepo: custRepo},
		allocator,
		&fakeCompanyRepo{c: company}, &fakeEstRepo{e: est}, &fakePOSRepo{p: pos},
		custRepo, seriesRepo, docRepo,
		sig, &fakeRenderer{}, store, queue, notifier,
		decimal.RequireFromString("0.18"), logger.Nop(),
	)
	return &createFixture{uc: uc, docRepo: docRepo, custRepo: custRepo, store: store,
		queue: queue, notifier: notifier, signer: sig, est: est}
}

func validRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		EstablishmentID: "est-1",
		PointOfSaleID:   "pos-1",
		Type:            "01",
		Series:          "F001",
		ClientName:      "Cliente Libre S.A.C.",
		ClientTaxID:     "20100070970",
		Items: []dto.CreateDocumentItem{
			{
				Description: "Servicio de consultoría",
				Quantity:    decimal.NewFromInt(2),
				UnitValue:   decimal.NewFromInt(100),
				Affectation: "10",
				TaxPercent:  decimal.NewFromInt(18),
			},
		},
	}
}

func TestCreate_EmisionInmediata(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	actor := Actor{UserID: "user-1"}

	resp, err := f.uc.Create(context.Background(), "emp-1", actor, validRequest())
	require.NoError(t, err)

	assert.Equal(t, "F001", resp.Series)
	assert.Equal(t, "00000001", resp.Correlativo)
	assert.Equal(t, "00000000", resp.Previous)
	assert.Equal(t, int(domainbilling.StateCreated), resp.OperationState)

	// IGV solo sobre líneas gravadas: 200 * 18% = 36.
	assert.True(t, resp.TotalTaxed.Equal(decimal.NewFromInt(200)), "gravado %s", resp.TotalTaxed)
	assert.True(t, resp.TaxAmount.Equal(decimal.NewFromInt(36)), "igv %s", resp.TaxAmount)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(236)), "total %s", resp.Total)

	// Modo inmediato: trabajo encolado con el contenido firmado.
	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, resp.ID, job.DocumentID)
	assert.Equal(t, "20100070970-01-F001-00000001", job.FileName)
	assert.Equal(t, []byte("<firmado/>"), job.SignedXML)
	assert.True(t, job.SaveArtifacts)
	assert.Equal(t, "room_01_emp-emp-1_est-est-1", job.RoomID)

	created := f.notifier.byType(EventDocumentCreated)
	require.Len(t, created, 1)
}

func TestCreate_ModoDiferidoNoEncola(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeDeferred)

	resp, err := f.uc.Create(context.Background(), "emp-1", Actor{UserID: "user-1"}, validRequest())
	require.NoError(t, err)

	// Diferido: artefactos persistidos para el barrido, sin trabajo inmediato.
	assert.Empty(t, f.queue.jobs)
	ctx := context.Background()
	ref := ArtifactRef{FileName: "20100070970-01-F001-00000001"}
	assert.True(t, f.store.HasUnsigned(ctx, ref))
	assert.True(t, f.store.HasSigned(ctx, ref))
	assert.Equal(t, int(domainbilling.StateCreated), resp.OperationState)
}

func TestCreate_TotalesPorAfectacion(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	in := validRequest()
	in.Items = []dto.CreateDocumentItem{
		{Description: "gravado", Quantity: decimal.NewFromInt(1),
			UnitValue: decimal.NewFromInt(100), Affectation: "10", TaxPercent: decimal.NewFromInt(18)},
		{Description: "exonerado", Quantity: decimal.NewFromInt(1),
			UnitValue: decimal.NewFromInt(50), Affectation: "20"},
		{Description: "inafecto", Quantity: decimal.NewFromInt(1),
			UnitValue: decimal.NewFromInt(30), Affectation: "30"},
	}

	resp, err := f.uc.Create(context.Background(), "emp-1", Actor{UserID: "user-1"}, in)
	require.NoError(t, err)

	assert.True(t, resp.TotalTaxed.Equal(decimal.NewFromInt(100)))
	assert.True(t, resp.TotalExonerated.Equal(decimal.NewFromInt(50)))
	assert.True(t, resp.TotalUntaxed.Equal(decimal.NewFromInt(30)))
	assert.True(t, resp.TaxAmount.Equal(decimal.NewFromInt(18)))
	// Total = gravado + IGV + exonerado + inafecto.
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(198)), "total %s", resp.Total)
}

func TestCreate_Validaciones(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	actor := Actor{UserID: "user-1"}
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*dto.CreateDocumentRequest)
	}{
		{"sin items", func(r *dto.CreateDocumentRequest) { r.Items = nil }},
		{"tipo desconocido", func(r *dto.CreateDocumentRequest) { r.Type = "99" }},
		{"serie malformada", func(r *dto.CreateDocumentRequest) { r.Series = "X01" }},
		{"serie boleta para factura", func(r *dto.CreateDocumentRequest) { r.Series = "B001" }},
		{"cantidad cero", func(r *dto.CreateDocumentRequest) { r.Items[0].Quantity = decimal.Zero }},
		{"afectacion desconocida", func(r *dto.CreateDocumentRequest) { r.Items[0].Affectation = "99" }},
		{"cliente ausente", func(r *dto.CreateDocumentRequest) { r.ClientName = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validRequest()
			tc.mutate(&in)
			_, err := f.uc.Create(ctx, "emp-1", actor, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCreate_SerieNoConfigurada(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	in := validRequest()
	in.Series = "F999"

	_, err := f.uc.Create(context.Background(), "emp-1", Actor{UserID: "user-1"}, in)
	assert.ErrorIs(t, err, domain.ErrSeriesNotFound)
}

func TestCreate_EstablecimientoDeOtraEmpresa(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	f.est.CompanyID = "emp-ajena"

	_, err := f.uc.Create(context.Background(), "emp-1", Actor{UserID: "user-1"}, validRequest())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreate_ClienteRegistradoConPermiso(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	actor := Actor{UserID: "user-1", CanRegisterCustomers: true}

	resp, err := f.uc.Create(context.Background(), "emp-1", actor, validRequest())
	require.NoError(t, err)

	// El cliente quedó registrado y el comprobante lo referencia.
	customer, _ := f.custRepo.GetByTaxID(context.Background(), "emp-1", "20100070970")
	require.NotNil(t, customer)
	got, _ := f.docRepo.GetByID(context.Background(), resp.ID)
	assert.Equal(t, customer.ID, got.CustomerID)
	assert.False(t, got.FreeTextCustomer())
}

func TestCreate_RUCDeClienteInvalido(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	actor := Actor{UserID: "user-1", CanRegisterCustomers: true}
	in := validRequest()
	in.ClientTaxID = "20100070971" // dígito de verificación alterado

	_, err := f.uc.Create(context.Background(), "emp-1", actor, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_ClienteTextoLibreSinPermiso(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)

	resp, err := f.uc.Create(context.Background(), "emp-1", Actor{UserID: "user-1"}, validRequest())
	require.NoError(t, err)

	// Sin permiso de registro: identidad libre sobre el comprobante.
	customer, _ := f.custRepo.GetByTaxID(context.Background(), "emp-1", "20100070970")
	assert.Nil(t, customer)
	got, _ := f.docRepo.GetByID(context.Background(), resp.ID)
	assert.True(t, got.FreeTextCustomer())
	assert.Equal(t, "Cliente Libre S.A.C.", got.ClientName)
}

func TestCreate_ReingresoIdempotente(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	actor := Actor{UserID: "user-1"}
	ctx := context.Background()

	first, err := f.uc.Create(ctx, "emp-1", actor, validRequest())
	require.NoError(t, err)
	require.Equal(t, "00000001", first.Correlativo)

	// Reingreso con el mismo ID: devuelve el comprobante sin acuñar otro número.
	in := validRequest()
	in.DocumentID = first.ID
	again, err := f.uc.Create(ctx, "emp-1", actor, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "00000001", again.Correlativo)

	// La siguiente emisión normal continúa la secuencia sin hueco.
	next, err := f.uc.Create(ctx, "emp-1", actor, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "00000002", next.Correlativo)
}

func TestCreate_ReingresoConSerieDistintaEsConflicto(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	actor := Actor{UserID: "user-1"}
	ctx := context.Background()

	// Segunda serie del mismo punto de venta.
	require.NoError(t, f.uc.seriesRepo.Create(ctx, &entity.Series{
		ID: "serie-2", PointOfSaleID: "pos-1", DocumentType: "01", Code: "F002", Active: true,
	}))

	first, err := f.uc.Create(ctx, "emp-1", actor, validRequest())
	require.NoError(t, err)

	in := validRequest()
	in.DocumentID = first.ID
	in.Series = "F002"
	_, err = f.uc.Create(ctx, "emp-1", actor, in)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreate_FirmaCaidaDejaTrabajoRegenerate(t *testing.T) {
	f := newCreateFixture(t, entity.SendModeImmediate)
	f.signer.err = domain.ErrUnreachable

	resp, err := f.uc.Create(context.Background(), "emp-1", Actor{UserID: "user-1"}, validRequest())
	require.NoError(t, err, "la emisión no depende de la firma")

	// El trabajo pide regenerar el XML en el worker.
	require.Len(t, f.queue.jobs, 1)
	assert.True(t, f.queue.jobs[0].Regenerate)
	assert.Empty(t, f.queue.jobs[0].SignedXML)
	assert.Equal(t, int(domainbilling.StateCreated), resp.OperationState)
}
