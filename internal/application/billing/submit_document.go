package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tu-usuario/facturacion-api/internal/domain"
	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
)

// SubmitDocumentUseCase es el consumidor de trabajos de envío: recarga el
// comprobante fresco de la base (nunca confía en el snapshot del trabajo),
// transita a ENVIANDO, entrega al WS tributario, persiste el resultado y la
// constancia, aplica la transición final y notifica.
//
// Es idempotente: si la constancia de recepción ya existe en el almacén, el
// veredicto se deriva de ella sin repetir el envío.
type SubmitDocumentUseCase struct {
	docRepo       repository.DocumentRepository
	companyRepo   repository.CompanyRepository
	estRepo       repository.EstablishmentRepository
	store         ArtifactStore
	gateway       Gateway
	cdrParser     CDRParser
	signer        DocumentSigner
	notifier      Notifier
	providerCreds Credentials // credenciales del proveedor (OSE) para empresas delegadas
	log           *logger.Logger
}

// NewSubmitDocumentUseCase construye el consumidor.
func NewSubmitDocumentUseCase(
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	estRepo repository.EstablishmentRepository,
	store ArtifactStore,
	gateway Gateway,
	cdrParser CDRParser,
	signer DocumentSigner,
	notifier Notifier,
	providerCreds Credentials,
	log *logger.Logger,
) *SubmitDocumentUseCase {
	return &SubmitDocumentUseCase{
		docRepo:       docRepo,
		companyRepo:   companyRepo,
		estRepo:       estRepo,
		store:         store,
		gateway:       gateway,
		cdrParser:     cdrParser,
		signer:        signer,
		notifier:      notifier,
		providerCreds: providerCreds,
		log:           log,
	}
}

// Handle procesa un trabajo de envío. Un error que cumpla domain.IsRetryable
// hace que la cola reintente con backoff; cualquier otro error retiene el
// trabajo para inspección manual sin reintentar.
func (uc *SubmitDocumentUseCase) Handle(ctx context.Context, job SubmissionJob) error {
	doc, err := uc.docRepo.GetByID(ctx, job.DocumentID)
	if err != nil {
		return fmt.Errorf("%w: recargar comprobante %s: %v", domain.ErrInternal, job.DocumentID, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: comprobante %s no existe", domain.ErrInternal, job.DocumentID)
	}

	if !job.Cancellation && doc.OperationState.Terminal() {
		// Trabajo duplicado sobre un comprobante ya resuelto.
		uc.log.Debug().Str("documento", doc.ID).Msg("comprobante ya en estado terminal, trabajo descartado")
		return nil
	}

	company, err := uc.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil || company == nil {
		return fmt.Errorf("%w: empresa %s no encontrada", domain.ErrInternal, doc.CompanyID)
	}
	est, err := uc.estRepo.GetByID(ctx, doc.EstablishmentID)
	if err != nil || est == nil {
		return fmt.Errorf("%w: establecimiento %s no encontrado", domain.ErrInternal, doc.EstablishmentID)
	}

	ref := ArtifactRef{
		TaxID:             company.TaxID,
		EstablishmentCode: est.Code,
		DocType:           doc.Type,
		FileName:          job.FileName,
	}

	// Recuperación idempotente: constancia ya en disco -> veredicto local,
	// sin llamada de red.
	if !job.Cancellation && uc.store.HasCDR(ctx, ref) {
		cdr, lErr := uc.store.LoadCDR(ctx, ref)
		if lErr != nil {
			return fmt.Errorf("%w: leer constancia existente: %v", domain.ErrInternal, lErr)
		}
		verdict, pErr := uc.cdrParser.Parse(cdr)
		if pErr != nil {
			return fmt.Errorf("%w: constancia ilegible: %v", domain.ErrInternal, pErr)
		}
		return uc.ApplyLocalVerdict(ctx, doc, job.RoomID, verdict)
	}

	// CREADO -> ENVIANDO; un reintento llega ya en ENVIANDO y no re-transita.
	if doc.OperationState == domainbilling.StateCreated {
		next, tErr := doc.OperationState.Transition(domainbilling.StateSending)
		if tErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrInternal, tErr)
		}
		doc.OperationState = next
		doc.UpdatedAt = time.Now()
		if uErr := uc.docRepo.Update(ctx, doc); uErr != nil {
			return fmt.Errorf("%w: persistir ENVIANDO: %v", domain.ErrInternal, uErr)
		}
	}
	uc.notifier.Publish(ctx, job.RoomID, Event{
		Type:       EventStatusMessage,
		DocumentID: doc.ID,
		StateCode:  int(doc.OperationState),
		StateLabel: doc.OperationState.String(),
		Message:    "enviando a la administración tributaria",
		Loading:    true,
		SendMode:   job.SendMode,
	})

	signed, save, err := uc.resolveSigned(ctx, doc, company, ref, &job)
	if err != nil {
		// Falla previa al envío: fatal para este trabajo, sin reintento.
		uc.markInternalError(ctx, doc, job.RoomID, err)
		return fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	creds := Credentials{RUC: company.TaxID, User: company.SolUser, Password: company.SolPassword}
	if company.DelegatedProvider {
		creds = uc.providerCreds
	}

	outcome, err := uc.gateway.Submit(ctx, creds, job.FileName, signed)
	if err != nil {
		// El comprobante permanece en ENVIANDO; la cola reintenta con backoff.
		uc.log.Warn().Err(err).Str("documento", doc.ID).Msg("entrega al WS tributario fallida")
		return err
	}

	// Artefactos: los recién generados solo cuando el trabajo lo pide; la
	// constancia siempre que exista.
	if save && job.SaveArtifacts {
		if sErr := uc.store.SaveUnsigned(ctx, ref, job.UnsignedXML); sErr != nil {
			uc.log.Warn().Err(sErr).Str("documento", doc.ID).Msg("no se pudo guardar el XML sin firmar")
		}
		if sErr := uc.store.SaveSigned(ctx, ref, signed); sErr != nil {
			uc.log.Warn().Err(sErr).Str("documento", doc.ID).Msg("no se pudo guardar el XML firmado")
		}
	}
	if len(outcome.CDR) > 0 {
		if sErr := uc.store.SaveCDR(ctx, ref, outcome.CDR); sErr != nil {
			uc.log.Warn().Err(sErr).Str("documento", doc.ID).Msg("no se pudo guardar la constancia de recepción")
		}
	}

	if job.Cancellation {
		return uc.applyCancellationOutcome(ctx, doc, job.RoomID, outcome)
	}
	return uc.applyOutcome(ctx, doc, job.RoomID, outcome)
}

// resolveSigned obtiene el XML firmado: del trabajo, del almacén o regenerando
// vía el servicio de firma. El booleano indica si hay contenido nuevo que persistir.
func (uc *SubmitDocumentUseCase) resolveSigned(ctx context.Context, doc *entity.Document, company *entity.Company, ref ArtifactRef, job *SubmissionJob) ([]byte, bool, error) {
	switch {
	case job.Regenerate:
		details, err := uc.docRepo.GetDetails(ctx, doc.ID)
		if err != nil {
			return nil, false, fmt.Errorf("cargar detalles para regenerar: %w", err)
		}
		unsigned, signed, err := uc.signer.GenerateAndSign(ctx, doc, details, company)
		if err != nil {
			return nil, false, fmt.Errorf("regenerar y firmar: %w", err)
		}
		job.UnsignedXML = unsigned
		job.SignedXML = signed
		return signed, true, nil
	case job.OnDisk:
		signed, err := uc.store.LoadSigned(ctx, ref)
		if err != nil {
			return nil, false, fmt.Errorf("leer XML firmado del almacén: %w", err)
		}
		return signed, false, nil
	case len(job.SignedXML) > 0:
		return job.SignedXML, true, nil
	default:
		return nil, false, fmt.Errorf("trabajo sin XML firmado disponible")
	}
}

// ApplyLocalVerdict aplica un veredicto derivado de una constancia local, sin
// contacto con la autoridad. Lo usa también el barrido de reconciliación.
func (uc *SubmitDocumentUseCase) ApplyLocalVerdict(ctx context.Context, doc *entity.Document, room string, v *Verdict) error {
	outcome := &Outcome{
		Class:        domainbilling.Classify(v.Code),
		Code:         v.Code,
		Description:  v.Description,
		Observations: v.Observations,
	}
	return uc.applyOutcome(ctx, doc, room, outcome)
}

// applyOutcome aplica la transición de estado según la clasificación y notifica.
func (uc *SubmitDocumentUseCase) applyOutcome(ctx context.Context, doc *entity.Document, room string, outcome *Outcome) error {
	target := outcome.Class.TargetState()

	// Recuperación local sobre un comprobante aún en CREADO: la máquina exige
	// pasar por ENVIANDO antes de cualquier terminal.
	if doc.OperationState == domainbilling.StateCreated && target.Terminal() {
		sending, tErr := doc.OperationState.Transition(domainbilling.StateSending)
		if tErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrInternal, tErr)
		}
		doc.OperationState = sending
	}

	if doc.OperationState != target {
		next, tErr := doc.OperationState.Transition(target)
		if tErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrInternal, tErr)
		}
		doc.OperationState = next
	}
	doc.ResponseCode = strconv.Itoa(outcome.Code)
	doc.ResponseDescription = outcome.Description
	if len(outcome.Observations) > 0 {
		doc.Observations = strings.Join(outcome.Observations, "; ")
	}
	doc.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		return fmt.Errorf("%w: persistir resultado: %v", domain.ErrInternal, err)
	}

	uc.notifier.Publish(ctx, room, Event{
		Type:         EventDocumentUpdated,
		DocumentID:   doc.ID,
		StateCode:    int(doc.OperationState),
		StateLabel:   doc.OperationState.String(),
		Message:      outcome.Description,
		ResponseCode: doc.ResponseCode,
		Observations: outcome.Observations,
	})

	if outcome.Class == domainbilling.ClassAuthorityException {
		// Vuelta a CREADO persistida; el error reintentable dispara el backoff.
		return fmt.Errorf("%w: código %d: %s", domain.ErrAuthorityException, outcome.Code, outcome.Description)
	}
	uc.log.Info().Str("documento", doc.ID).Stringer("estado", doc.OperationState).
		Int("codigo", outcome.Code).Msg("comprobante procesado")
	return nil
}

// applyCancellationOutcome aplica el veredicto del flujo de baja al sub-estado.
func (uc *SubmitDocumentUseCase) applyCancellationOutcome(ctx context.Context, doc *entity.Document, room string, outcome *Outcome) error {
	if doc.CancellationState == nil {
		return fmt.Errorf("%w: comprobante sin baja en curso", domain.ErrInternal)
	}
	var target domainbilling.CancellationState
	switch outcome.Class {
	case domainbilling.ClassAccepted, domainbilling.ClassObservation:
		target = domainbilling.CancelAccepted
	case domainbilling.ClassAuthorityException:
		uc.notifier.Publish(ctx, room, Event{
			Type:       EventStatusMessage,
			DocumentID: doc.ID,
			StateCode:  int(*doc.CancellationState),
			StateLabel: doc.CancellationState.String(),
			Message:    "baja en reintento: " + outcome.Description,
			Loading:    true,
		})
		return fmt.Errorf("%w: código %d: %s", domain.ErrAuthorityException, outcome.Code, outcome.Description)
	default:
		target = domainbilling.CancelRejected
	}

	next, err := doc.CancellationState.Transition(target)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	doc.CancellationState = &next
	doc.ResponseCode = strconv.Itoa(outcome.Code)
	doc.ResponseDescription = outcome.Description
	doc.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		return fmt.Errorf("%w: persistir baja: %v", domain.ErrInternal, err)
	}

	uc.notifier.Publish(ctx, room, Event{
		Type:         EventDocumentUpdated,
		DocumentID:   doc.ID,
		StateCode:    int(next),
		StateLabel:   next.String(),
		Message:      outcome.Description,
		ResponseCode: doc.ResponseCode,
	})
	return nil
}

// markInternalError deja el comprobante en ERROR_INTERNO y notifica.
func (uc *SubmitDocumentUseCase) markInternalError(ctx context.Context, doc *entity.Document, room string, cause error) {
	if next, tErr := doc.OperationState.Transition(domainbilling.StateInternalError); tErr == nil {
		doc.OperationState = next
		doc.ResponseDescription = cause.Error()
		doc.UpdatedAt = time.Now()
		if uErr := uc.docRepo.Update(ctx, doc); uErr != nil {
			uc.log.Error().Err(uErr).Str("documento", doc.ID).Msg("no se pudo persistir ERROR_INTERNO")
		}
	}
	uc.notifier.Publish(ctx, room, Event{
		Type:       EventStatusMessage,
		DocumentID: doc.ID,
		StateCode:  int(doc.OperationState),
		StateLabel: doc.OperationState.String(),
		Message:    cause.Error(),
	})
}
