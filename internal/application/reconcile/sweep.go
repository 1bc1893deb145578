// Package reconcile implementa los barridos periódicos que recuperan
// comprobantes dejados en estado indeterminado por caídas o reinicios del
// proceso a mitad de un envío.
package reconcile

import (
	"context"
	"time"

	appbilling "github.com/tu-usuario/facturacion-api/internal/application/billing"
	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
	"github.com/tu-usuario/facturacion-api/pkg/sunat"
)

// VerdictApplier aplica a un comprobante un veredicto derivado de una
// constancia local, sin contacto con la autoridad.
type VerdictApplier interface {
	ApplyLocalVerdict(ctx context.Context, doc *entity.Document, room string, v *appbilling.Verdict) error
}

// Sweep barrido de reconciliación con dos cadencias: inmediata (comprobantes
// atascados de establecimientos en modo inmediato) y diferida (envío por lotes).
// Re-entra por el mismo camino del worker de envío; la idempotencia la da el
// chequeo de constancia existente.
type Sweep struct {
	docRepo     repository.DocumentRepository
	estRepo     repository.EstablishmentRepository
	companyRepo repository.CompanyRepository
	store       appbilling.ArtifactStore
	cdrParser   appbilling.CDRParser
	applier     VerdictApplier
	queue       appbilling.Enqueuer
	stuckAfter  time.Duration
	log         *logger.Logger
}

// NewSweep construye el barrido.
func NewSweep(
	docRepo repository.DocumentRepository,
	estRepo repository.EstablishmentRepository,
	companyRepo repository.CompanyRepository,
	store appbilling.ArtifactStore,
	cdrParser appbilling.CDRParser,
	applier VerdictApplier,
	queue appbilling.Enqueuer,
	stuckAfter time.Duration,
	log *logger.Logger,
) *Sweep {
	return &Sweep{
		docRepo:     docRepo,
		estRepo:     estRepo,
		companyRepo: companyRepo,
		store:       store,
		cdrParser:   cdrParser,
		applier:     applier,
		queue:       queue,
		stuckAfter:  stuckAfter,
		log:         log,
	}
}

// pendingStates estados no terminales que el barrido recupera.
var pendingStates = []domainbilling.OperationState{
	domainbilling.StateCreated,
	domainbilling.StateSending,
}

// RunImmediate re-encola comprobantes atascados de establecimientos en modo
// inmediato: quedaron en CREADO o ENVIANDO más tiempo del esperado.
func (s *Sweep) RunImmediate(ctx context.Context) {
	s.run(ctx, entity.SendModeImmediate)
}

// RunDeferred procesa los comprobantes pendientes de establecimientos
// configurados para envío diferido por lotes.
func (s *Sweep) RunDeferred(ctx context.Context) {
	s.run(ctx, entity.SendModeDeferred)
}

func (s *Sweep) run(ctx context.Context, mode string) {
	ests, err := s.estRepo.ListBySendMode(ctx, mode)
	if err != nil {
		s.log.Error().Err(err).Str("modo", mode).Msg("barrido: no se pudieron listar establecimientos")
		return
	}
	cutoff := time.Now().Add(-s.stuckAfter)
	for _, est := range ests {
		company, cErr := s.companyRepo.GetByID(ctx, est.CompanyID)
		if cErr != nil || company == nil {
			s.log.Warn().Str("establecimiento", est.ID).Msg("barrido: empresa no encontrada, se omite")
			continue
		}
		docs, dErr := s.docRepo.ListByStates(ctx, est.ID, pendingStates, cutoff)
		if dErr != nil {
			s.log.Error().Err(dErr).Str("establecimiento", est.ID).Msg("barrido: no se pudieron listar pendientes")
			continue
		}
		for _, doc := range docs {
			s.recover(ctx, company, est, doc)
		}
	}
}

// recover decide el camino de recuperación de un comprobante pendiente:
// veredicto local si la constancia ya existe, re-encolado reutilizando el XML
// firmado si está en disco, o regeneración completa si falta.
func (s *Sweep) recover(ctx context.Context, company *entity.Company, est *entity.Establishment, doc *entity.Document) {
	fileName := sunat.DocumentFileName(company.TaxID, doc.Type, doc.Series, doc.Correlativo)
	ref := appbilling.ArtifactRef{
		TaxID:             company.TaxID,
		EstablishmentCode: est.Code,
		DocType:           doc.Type,
		FileName:          fileName,
	}
	room := appbilling.RoomID(doc.Type, company.ID, est.ID)

	job := appbilling.SubmissionJob{
		DocumentID: doc.ID,
		RoomID:     room,
		FileName:   fileName,
		SendMode:   est.SendMode,
	}

	switch {
	case s.store.HasUnsigned(ctx, ref) && s.store.HasSigned(ctx, ref):
		if s.store.HasCDR(ctx, ref) {
			// Veredicto ya recibido en un intento previo: se aplica localmente,
			// sin repetir el envío.
			cdr, lErr := s.store.LoadCDR(ctx, ref)
			if lErr != nil {
				s.log.Error().Err(lErr).Str("documento", doc.ID).Msg("barrido: no se pudo leer la constancia")
				return
			}
			verdict, pErr := s.cdrParser.Parse(cdr)
			if pErr != nil {
				s.log.Error().Err(pErr).Str("documento", doc.ID).Msg("barrido: constancia ilegible")
				return
			}
			if aErr := s.applier.ApplyLocalVerdict(ctx, doc, room, verdict); aErr != nil {
				s.log.Error().Err(aErr).Str("documento", doc.ID).Msg("barrido: no se pudo aplicar el veredicto local")
			}
			return
		}
		// XML firmado disponible: reenvío sin regenerar ni re-persistir.
		job.OnDisk = true
		job.SaveArtifacts = false
	default:
		// Sin artefacto firmado: el worker repite validación y firma.
		job.Regenerate = true
		job.SaveArtifacts = true
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.Error().Err(err).Str("documento", doc.ID).Msg("barrido: no se pudo encolar la recuperación")
		return
	}
	s.log.Info().Str("documento", doc.ID).Bool("enDisco", job.OnDisk).Msg("barrido: comprobante re-encolado")
}
