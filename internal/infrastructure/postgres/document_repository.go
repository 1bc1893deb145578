package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturacion-api/internal/domain"
	"github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, company_id, establishment_id, point_of_sale_id, customer_id, user_id,
	doc_type, series, correlativo, client_name, client_tax_id,
	total_taxed, total_exonerated, total_untaxed, total_export, total_free,
	tax_amount, tax_rate, total,
	operation_state, cancellation_state,
	response_code, response_description, observations,
	created_at, updated_at`

// Create persiste la cabecera del comprobante.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, doc.EstablishmentID, doc.PointOfSaleID,
		nullIfEmpty(doc.CustomerID), doc.UserID,
		doc.Type, doc.Series, doc.Correlativo,
		doc.ClientName, nullIfEmpty(doc.ClientTaxID),
		doc.TotalTaxed, doc.TotalExonerated, doc.TotalUntaxed, doc.TotalExport, doc.TotalFree,
		doc.TaxAmount, doc.TaxRate, doc.Total,
		int(doc.OperationState), cancellationToDB(doc.CancellationState),
		nullIfEmpty(doc.ResponseCode), nullIfEmpty(doc.ResponseDescription), nullIfEmpty(doc.Observations),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("comprobante %s-%s ya existe: %w", doc.Series, doc.Correlativo, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateDetail persiste una línea de detalle.
func (r *DocumentRepo) CreateDetail(ctx context.Context, detail *entity.DocumentDetail) error {
	if detail.ID == "" {
		detail.ID = uuid.New().String()
	}
	query := `
		INSERT INTO document_details (id, document_id, product_id, description, quantity, unit_value, affectation, tax_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		detail.ID, detail.DocumentID, nullIfEmpty(detail.ProductID), detail.Description,
		detail.Quantity, detail.UnitValue, detail.Affectation, detail.TaxPercent,
	)
	if err != nil {
		return fmt.Errorf("insert document detail: %w", err)
	}
	return nil
}

// Update actualiza estado, sub-estado de baja y respuesta de la autoridad.
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documents
		SET operation_state      = $2,
		    cancellation_state   = $3,
		    response_code        = $4,
		    response_description = $5,
		    observations         = $6,
		    updated_at           = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		doc.ID,
		int(doc.OperationState),
		cancellationToDB(doc.CancellationState),
		nullIfEmpty(doc.ResponseCode),
		nullIfEmpty(doc.ResponseDescription),
		nullIfEmpty(doc.Observations),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// GetByID obtiene un comprobante por ID, o nil si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByNumber busca un comprobante por su número completo dentro del punto de venta.
func (r *DocumentRepo) GetByNumber(ctx context.Context, posID, docType, series, correlativo string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE point_of_sale_id = $1 AND doc_type = $2 AND series = $3 AND correlativo = $4`
	doc, err := scanDocument(r.q.QueryRow(ctx, query, posID, docType, series, correlativo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by number: %w", err)
	}
	return doc, nil
}

// GetDetails obtiene todas las líneas de un comprobante.
func (r *DocumentRepo) GetDetails(ctx context.Context, documentID string) ([]*entity.DocumentDetail, error) {
	query := `
		SELECT id, document_id, product_id, description, quantity, unit_value, affectation, tax_percent
		FROM document_details WHERE document_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document details: %w", err)
	}
	defer rows.Close()

	var list []*entity.DocumentDetail
	for rows.Next() {
		var d entity.DocumentDetail
		var productID *string
		if err := rows.Scan(&d.ID, &d.DocumentID, &productID, &d.Description,
			&d.Quantity, &d.UnitValue, &d.Affectation, &d.TaxPercent); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		d.ProductID = derefStr(productID)
		list = append(list, &d)
	}
	return list, rows.Err()
}

// ListByStates devuelve los comprobantes del establecimiento en alguno de los
// estados dados, creados antes de la marca indicada.
func (r *DocumentRepo) ListByStates(ctx context.Context, establishmentID string, states []billing.OperationState, before time.Time) ([]*entity.Document, error) {
	ints := make([]int, 0, len(states))
	for _, s := range states {
		ints = append(ints, int(s))
	}
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE establishment_id = $1 AND operation_state = ANY($2) AND created_at < $3
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, establishmentID, ints, before)
	if err != nil {
		return nil, fmt.Errorf("list documents by state: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ListByCompany lista comprobantes de la empresa, más recientes primero.
func (r *DocumentRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]*entity.Document, error) {
	var list []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	var customerID, clientTaxID, respCode, respDesc, obs *string
	var opState int
	var cancelState *int

	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.EstablishmentID, &doc.PointOfSaleID,
		&customerID, &doc.UserID,
		&doc.Type, &doc.Series, &doc.Correlativo,
		&doc.ClientName, &clientTaxID,
		&doc.TotalTaxed, &doc.TotalExonerated, &doc.TotalUntaxed, &doc.TotalExport, &doc.TotalFree,
		&doc.TaxAmount, &doc.TaxRate, &doc.Total,
		&opState, &cancelState,
		&respCode, &respDesc, &obs,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.CustomerID = derefStr(customerID)
	doc.ClientTaxID = derefStr(clientTaxID)
	doc.ResponseCode = derefStr(respCode)
	doc.ResponseDescription = derefStr(respDesc)
	doc.Observations = derefStr(obs)
	doc.OperationState = billing.OperationState(opState)
	if cancelState != nil {
		cs := billing.CancellationState(*cancelState)
		doc.CancellationState = &cs
	}
	return &doc, nil
}

func cancellationToDB(cs *billing.CancellationState) *int {
	if cs == nil {
		return nil
	}
	n := int(*cs)
	return &n
}
