package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/facturacion-api/internal/domain"
	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
	"github.com/tu-usuario/facturacion-api/pkg/sunat"
)

// RequestCancellationUseCase inicia el flujo de baja (comunicación de baja) de
// un comprobante aceptado: marca TICKET_SOLICITADO y encola el envío; el
// veredicto llega por el mismo pipeline asíncrono.
type RequestCancellationUseCase struct {
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	queue       Enqueuer
	notifier    Notifier
	log         *logger.Logger
}

// NewRequestCancellationUseCase construye el caso de uso.
func NewRequestCancellationUseCase(
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	queue Enqueuer,
	notifier Notifier,
	log *logger.Logger,
) *RequestCancellationUseCase {
	return &RequestCancellationUseCase{docRepo: docRepo, companyRepo: companyRepo, queue: queue, notifier: notifier, log: log}
}

// Cancel solicita la baja del comprobante indicado.
func (uc *RequestCancellationUseCase) Cancel(ctx context.Context, companyID, documentID, reason string) error {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil || doc == nil {
		return domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return domain.ErrForbidden
	}
	// Solo un comprobante aceptado y sin baja en curso puede darse de baja.
	if doc.OperationState != domainbilling.StateAccepted || doc.CancellationState != nil {
		return fmt.Errorf("%w: el comprobante no admite baja en su estado actual", domain.ErrConflict)
	}
	company, err := uc.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil || company == nil {
		return domain.ErrNotFound
	}

	ticket := domainbilling.CancelTicketRequested
	doc.CancellationState = &ticket
	if reason != "" {
		doc.Observations = reason
	}
	doc.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		return fmt.Errorf("persistir solicitud de baja: %w", err)
	}

	room := RoomID(doc.Type, doc.CompanyID, doc.EstablishmentID)
	uc.notifier.Publish(ctx, room, Event{
		Type:       EventDocumentUpdated,
		DocumentID: doc.ID,
		StateCode:  int(ticket),
		StateLabel: ticket.String(),
		Message:    "baja solicitada",
	})

	// La comunicación de baja se firma aparte; el worker la regenera siempre.
	job := SubmissionJob{
		DocumentID:    doc.ID,
		RoomID:        room,
		FileName:      "RA-" + sunat.DocumentFileName(company.TaxID, doc.Type, doc.Series, doc.Correlativo),
		Regenerate:    true,
		SaveArtifacts: true,
		Cancellation:  true,
	}
	if err := uc.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("encolar baja: %w", err)
	}
	return nil
}
