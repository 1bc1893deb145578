package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-api/internal/application/dto"
	"github.com/tu-usuario/facturacion-api/internal/domain"
	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
	"github.com/tu-usuario/facturacion-api/pkg/sunat"
)

// Actor identifica al usuario emisor y sus permisos relevantes para la emisión.
type Actor struct {
	UserID               string
	CanRegisterCustomers bool
}

// CreateDocumentUseCase emite un comprobante: valida la cadena
// empresa → establecimiento → punto de venta → serie, asigna el correlativo,
// persiste cabecera y detalles en una transacción, genera artefactos y encola
// el envío cuando el establecimiento está en modo inmediato.
//
// El asignador no es transaccional con la escritura del comprobante: un número
// asignado cuya transacción falla queda como hueco en la serie, nunca se
// reutiliza en silencio.
type CreateDocumentUseCase struct {
	txRunner     TxRunner
	allocator    *SequenceAllocator
	companyRepo  repository.CompanyRepository
	estRepo      repository.EstablishmentRepository
	posRepo      repository.PointOfSaleRepository
	customerRepo repository.CustomerRepository
	seriesRepo   repository.SeriesRepository
	docRepo      repository.DocumentRepository
	signer       DocumentSigner
	renderer     Renderer
	store        ArtifactStore
	queue        Enqueuer
	notifier     Notifier
	taxRate      decimal.Decimal // tasa de IGV vigente, fracción (ej: 0.18)
	log          *logger.Logger
}

// NewCreateDocumentUseCase construye el caso de uso.
func NewCreateDocumentUseCase(
	txRunner TxRunner,
	allocator *SequenceAllocator,
	companyRepo repository.CompanyRepository,
	estRepo repository.EstablishmentRepository,
	posRepo repository.PointOfSaleRepository,
	customerRepo repository.CustomerRepository,
	seriesRepo repository.SeriesRepository,
	docRepo repository.DocumentRepository,
	signer DocumentSigner,
	renderer Renderer,
	store ArtifactStore,
	queue Enqueuer,
	notifier Notifier,
	taxRate decimal.Decimal,
	log *logger.Logger,
) *CreateDocumentUseCase {
	return &CreateDocumentUseCase{
		txRunner:     txRunner,
		allocator:    allocator,
		companyRepo:  companyRepo,
		estRepo:      estRepo,
		posRepo:      posRepo,
		customerRepo: customerRepo,
		seriesRepo:   seriesRepo,
		docRepo:      docRepo,
		signer:       signer,
		renderer:     renderer,
		store:        store,
		queue:        queue,
		notifier:     notifier,
		taxRate:      taxRate,
		log:          log,
	}
}

// Create emite el comprobante y devuelve de inmediato la respuesta con el
// número asignado; el veredicto de la autoridad llega después por el canal de
// notificaciones.
func (uc *CreateDocumentUseCase) Create(ctx context.Context, companyID string, actor Actor, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if in.PointOfSaleID == "" || in.EstablishmentID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if !sunat.ValidDocTypes[in.Type] {
		return nil, fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidInput, in.Type)
	}
	if err := sunat.ValidateSeries(in.Series, in.Type); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	for _, item := range in.Items {
		if !item.Quantity.GreaterThan(decimal.Zero) || item.UnitValue.LessThan(decimal.Zero) {
			return nil, fmt.Errorf("%w: cantidad o valor unitario de línea", domain.ErrInvalidInput)
		}
		if sunat.AffectationBucket(item.Affectation) == sunat.BucketUnknown {
			return nil, fmt.Errorf("%w: afectación %q", domain.ErrInvalidInput, item.Affectation)
		}
	}

	// Cadena de validación: empresa, establecimiento y punto de venta activos
	// y mutuamente consistentes.
	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil || company == nil || !company.Active {
		return nil, domain.ErrNotFound
	}
	est, err := uc.estRepo.GetByID(ctx, in.EstablishmentID)
	if err != nil || est == nil || !est.Active {
		return nil, domain.ErrNotFound
	}
	if est.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	pos, err := uc.posRepo.GetByID(ctx, in.PointOfSaleID)
	if err != nil || pos == nil || !pos.Active {
		return nil, domain.ErrNotFound
	}
	if pos.EstablishmentID != est.ID {
		return nil, domain.ErrForbidden
	}

	// La serie debe existir en el punto de venta y corresponder al tipo habilitado.
	series, err := uc.seriesRepo.GetByPOSAndCode(ctx, in.PointOfSaleID, in.Series)
	if err != nil {
		return nil, fmt.Errorf("consultar serie: %w", err)
	}
	if series == nil || !series.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrSeriesNotFound, in.Series)
	}
	if series.DocumentType != in.Type {
		return nil, fmt.Errorf("%w: la serie %s no está habilitada para el tipo %s", domain.ErrInvalidInput, in.Series, in.Type)
	}

	// Cliente: registrado, registrable o identidad libre sobre el comprobante.
	customerID, clientName, clientTaxID, err := uc.resolveCustomer(ctx, companyID, actor, in)
	if err != nil {
		return nil, err
	}

	// Correlativo: reingreso idempotente si el comprobante ya fue creado
	// parcialmente con la misma serie; si no, asignación nueva.
	now := time.Now()
	docID := in.DocumentID
	var alloc *Allocation
	if docID != "" {
		if prev, pErr := uc.docRepo.GetByID(ctx, docID); pErr == nil && prev != nil {
			if prev.OperationState != domainbilling.StateCreated || prev.Series != in.Series {
				return nil, domain.ErrConflict
			}
			return uc.respond(prev, nil, ""), nil
		}
	} else {
		docID = uuid.New().String()
	}
	alloc, err = uc.allocator.Allocate(ctx, in.PointOfSaleID, in.Series)
	if err != nil {
		return nil, err
	}

	doc, details := uc.buildDocument(docID, companyID, est, pos, actor, in, customerID, clientName, clientTaxID, alloc.Issued, now)

	err = uc.txRunner.RunBilling(ctx, func(
		docRepo repository.DocumentRepository,
		_ repository.CustomerRepository,
	) error {
		// Re-verificación de duplicado: carrera entre dos emisiones del mismo número.
		existing, exErr := docRepo.GetByNumber(ctx, pos.ID, in.Type, in.Series, alloc.Issued)
		if exErr != nil {
			return fmt.Errorf("verificar duplicado: %w", exErr)
		}
		if existing != nil {
			return fmt.Errorf("%w: %s-%s ya emitido", domain.ErrDuplicate, in.Series, alloc.Issued)
		}
		if cErr := docRepo.Create(ctx, doc); cErr != nil {
			return cErr
		}
		for _, d := range details {
			if dErr := docRepo.CreateDetail(ctx, d); dErr != nil {
				return dErr
			}
		}
		return nil
	})
	if err != nil {
		// El número asignado queda como hueco documentado en la serie.
		uc.log.Warn().Err(err).Str("serie", in.Series).Str("correlativo", alloc.Issued).
			Msg("emisión fallida tras asignar correlativo; el número no se reutiliza")
		return nil, err
	}

	room := RoomID(doc.Type, companyID, est.ID)
	uc.afterCommit(ctx, doc, details, company, est, room)

	uc.notifier.Publish(ctx, room, Event{
		Type:       EventDocumentCreated,
		DocumentID: doc.ID,
		StateCode:  int(doc.OperationState),
		StateLabel: doc.OperationState.String(),
		Message:    fmt.Sprintf("%s %s-%s emitida", sunat.DocTypeLabel(doc.Type), doc.Series, doc.Correlativo),
		SendMode:   est.SendMode,
	})

	return uc.respond(doc, details, alloc.Previous), nil
}

// resolveCustomer decide cómo queda la identidad del cliente en el comprobante.
func (uc *CreateDocumentUseCase) resolveCustomer(ctx context.Context, companyID string, actor Actor, in dto.CreateDocumentRequest) (customerID, clientName, clientTaxID string, err error) {
	if in.CustomerID != "" {
		customer, cErr := uc.customerRepo.GetByID(ctx, in.CustomerID)
		if cErr != nil || customer == nil {
			return "", "", "", domain.ErrNotFound
		}
		if customer.CompanyID != companyID {
			return "", "", "", domain.ErrForbidden
		}
		return customer.ID, customer.Name, customer.TaxID, nil
	}
	if in.ClientName == "" {
		return "", "", "", fmt.Errorf("%w: cliente no informado", domain.ErrInvalidInput)
	}
	if actor.CanRegisterCustomers && in.ClientTaxID != "" {
		// Los RUC tienen 11 dígitos y dígito de verificación; los DNI (8) no se validan.
		if len(in.ClientTaxID) == 11 {
			if vErr := sunat.ValidateRUC(in.ClientTaxID); vErr != nil {
				return "", "", "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, vErr)
			}
		}
		if existing, _ := uc.customerRepo.GetByTaxID(ctx, companyID, in.ClientTaxID); existing != nil {
			return existing.ID, existing.Name, existing.TaxID, nil
		}
		customer := &entity.Customer{
			ID:        uuid.New().String(),
			CompanyID: companyID,
			Name:      in.ClientName,
			TaxID:     in.ClientTaxID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if cErr := uc.customerRepo.Create(ctx, customer); cErr != nil {
			return "", "", "", fmt.Errorf("registrar cliente: %w", cErr)
		}
		return customer.ID, customer.Name, customer.TaxID, nil
	}
	// Sin permiso de registro: la identidad queda como texto libre en el comprobante.
	return "", in.ClientName, in.ClientTaxID, nil
}

// buildDocument arma cabecera y detalles con los totales por balde de afectación.
func (uc *CreateDocumentUseCase) buildDocument(
	docID, companyID string,
	est *entity.Establishment,
	pos *entity.PointOfSale,
	actor Actor,
	in dto.CreateDocumentRequest,
	customerID, clientName, clientTaxID, correlativo string,
	now time.Time,
) (*entity.Document, []*entity.DocumentDetail) {
	var taxed, exonerated, untaxed, export, free, tax decimal.Decimal
	details := make([]*entity.DocumentDetail, 0, len(in.Items))

	for _, item := range in.Items {
		lineValue := item.Quantity.Mul(item.UnitValue)
		switch sunat.AffectationBucket(item.Affectation) {
		case sunat.BucketTaxed:
			taxed = taxed.Add(lineValue)
			tax = tax.Add(lineValue.Mul(item.TaxPercent.Div(decimal.NewFromInt(100))))
		case sunat.BucketExonerated:
			exonerated = exonerated.Add(lineValue)
		case sunat.BucketUntaxed:
			untaxed = untaxed.Add(lineValue)
		case sunat.BucketExport:
			export = export.Add(lineValue)
		case sunat.BucketFree:
			free = free.Add(lineValue)
		}
		details = append(details, &entity.DocumentDetail{
			ID:          uuid.New().String(),
			DocumentID:  docID,
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitValue:   item.UnitValue,
			Affectation: item.Affectation,
			TaxPercent:  item.TaxPercent,
		})
	}

	doc := &entity.Document{
		ID:              docID,
		CompanyID:       companyID,
		EstablishmentID: est.ID,
		PointOfSaleID:   pos.ID,
		CustomerID:      customerID,
		UserID:          actor.UserID,
		Type:            in.Type,
		Series:          in.Series,
		Correlativo:     correlativo,
		ClientName:      clientName,
		ClientTaxID:     clientTaxID,
		TotalTaxed:      taxed,
		TotalExonerated: exonerated,
		TotalUntaxed:    untaxed,
		TotalExport:     export,
		TotalFree:       free,
		TaxAmount:       tax,
		TaxRate:         uc.taxRate,
		Total:           taxed.Add(tax).Add(exonerated).Add(untaxed).Add(export),
		OperationState:  domainbilling.StateCreated,
		Observations:    in.Observations,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return doc, details
}

// afterCommit genera artefactos y encola el envío. Las fallas aquí no
// revierten la emisión: el barrido de reconciliación recupera lo que falte.
func (uc *CreateDocumentUseCase) afterCommit(ctx context.Context, doc *entity.Document, details []*entity.DocumentDetail, company *entity.Company, est *entity.Establishment, room string) {
	fileName := sunat.DocumentFileName(company.TaxID, doc.Type, doc.Series, doc.Correlativo)
	ref := ArtifactRef{
		TaxID:             company.TaxID,
		EstablishmentCode: est.Code,
		DocType:           doc.Type,
		FileName:          fileName,
	}

	// Representación imprimible, síncrona.
	if printed, rErr := uc.renderer.Render(ctx, doc, details, company); rErr != nil {
		uc.log.Warn().Err(rErr).Str("documento", doc.ID).Msg("no se pudo generar la representación imprimible")
	} else if sErr := uc.store.SavePrinted(ctx, ref, printed); sErr != nil {
		uc.log.Warn().Err(sErr).Str("documento", doc.ID).Msg("no se pudo guardar la representación imprimible")
	}

	job := SubmissionJob{
		DocumentID:    doc.ID,
		RoomID:        room,
		FileName:      fileName,
		SendMode:      est.SendMode,
		SaveArtifacts: true,
	}

	unsigned, signed, sErr := uc.signer.GenerateAndSign(ctx, doc, details, company)
	if sErr != nil {
		// El worker repetirá la generación y firma.
		uc.log.Warn().Err(sErr).Str("documento", doc.ID).Msg("firma delegada falló en la emisión; se encola regeneración")
		job.Regenerate = true
	} else {
		job.UnsignedXML = unsigned
		job.SignedXML = signed
	}

	if est.SendMode != entity.SendModeImmediate {
		// Modo diferido: persistir lo generado y dejar que el barrido por lotes encole.
		if !job.Regenerate {
			if err := uc.store.SaveUnsigned(ctx, ref, unsigned); err != nil {
				uc.log.Warn().Err(err).Str("documento", doc.ID).Msg("no se pudo guardar el XML sin firmar")
			}
			if err := uc.store.SaveSigned(ctx, ref, signed); err != nil {
				uc.log.Warn().Err(err).Str("documento", doc.ID).Msg("no se pudo guardar el XML firmado")
			}
		}
		return
	}

	if err := uc.queue.Enqueue(ctx, job); err != nil {
		uc.log.Error().Err(err).Str("documento", doc.ID).Msg("no se pudo encolar el envío; lo recuperará el barrido")
	}
}

func (uc *CreateDocumentUseCase) respond(doc *entity.Document, details []*entity.DocumentDetail, previous string) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:                  doc.ID,
		Type:                doc.Type,
		Series:              doc.Series,
		Correlativo:         doc.Correlativo,
		Previous:            previous,
		ClientName:          doc.ClientName,
		TotalTaxed:          doc.TotalTaxed,
		TotalExonerated:     doc.TotalExonerated,
		TotalUntaxed:        doc.TotalUntaxed,
		TotalExport:         doc.TotalExport,
		TotalFree:           doc.TotalFree,
		TaxAmount:           doc.TaxAmount,
		Total:               doc.Total,
		OperationState:      int(doc.OperationState),
		OperationStateLabel: doc.OperationState.String(),
		ResponseCode:        doc.ResponseCode,
		ResponseDescription: doc.ResponseDescription,
		Observations:        doc.Observations,
	}
	if doc.CancellationState != nil {
		cs := int(*doc.CancellationState)
		resp.CancellationState = &cs
	}
	for _, d := range details {
		resp.Details = append(resp.Details, dto.DocumentDetailResponse{
			ID:          d.ID,
			ProductID:   d.ProductID,
			Description: d.Description,
			Quantity:    d.Quantity,
			UnitValue:   d.UnitValue,
			Affectation: d.Affectation,
			TaxPercent:  d.TaxPercent,
		})
	}
	return resp
}

// Get obtiene un comprobante por ID con su detalle completo.
func (uc *CreateDocumentUseCase) Get(ctx context.Context, companyID, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil || doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	details, err := uc.docRepo.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.respond(doc, details, ""), nil
}

// List lista comprobantes de la empresa, más recientes primero.
func (uc *CreateDocumentUseCase) List(ctx context.Context, companyID string, limit, offset int) ([]*dto.DocumentResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	docs, err := uc.docRepo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, uc.respond(d, nil, ""))
	}
	return out, nil
}
