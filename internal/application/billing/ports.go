package billing

import (
	"context"
	"time"

	domainbilling "github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción que incluye los repos
// de facturación. El alcance transaccional es un solo comprobante
// (cabecera + detalles); no existen transacciones multi-comprobante.
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(
		docRepo repository.DocumentRepository,
		customerRepo repository.CustomerRepository,
	) error) error
}

// Unlocker libera un lock adquirido. Release es incondicional en los caminos
// de error del caller.
type Unlocker interface {
	Release(ctx context.Context) error
}

// Locker define el puerto de exclusión mutua distribuida: adquisición sin
// espera con expiración. Si el lock ya está tomado devuelve
// domain.ErrLockConflict, distinguible de cualquier otra falla.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Unlocker, error)
}

// CounterCache define el puerto del espejo volátil del contador de serie.
// ResyncAndIncrement aplica como unidad atómica: si el espejo no existe o
// difiere del valor durable lo sobrescribe con él, y luego incrementa.
// La atomicidad evita la pérdida de actualización entre dos asignadores que
// detectan la desincronización a la vez.
type CounterCache interface {
	ResyncAndIncrement(ctx context.Context, key string, durable int64) (int64, error)
}

// Credentials credenciales de autenticación ante el WS de la administración
// tributaria: las propias de la empresa o las del proveedor delegado.
type Credentials struct {
	RUC      string
	User     string
	Password string
}

// Outcome resultado normalizado de una entrega al WS tributario.
type Outcome struct {
	Class        domainbilling.Classification
	Code         int
	Description  string
	Observations []string
	CDR          []byte // constancia de recepción (zip); puede ser nil
}

// Gateway define el puerto de entrega de comprobantes al WS tributario.
// Las fallas de conexión se devuelven envueltas en domain.ErrUnreachable.
type Gateway interface {
	Submit(ctx context.Context, creds Credentials, fileName string, signedXML []byte) (*Outcome, error)
}

// Verdict veredicto extraído de una constancia de recepción (CDR).
type Verdict struct {
	Code         int
	Description  string
	Observations []string
}

// CDRParser extrae el veredicto de un CDR ya almacenado, sin contactar a la
// autoridad. Es la base de la recuperación idempotente del barrido.
type CDRParser interface {
	Parse(cdrZip []byte) (*Verdict, error)
}

// ArtifactRef ubica los artefactos de un comprobante en el almacén:
// por empresa / establecimiento / tipo de comprobante, con nombre determinista
// {RUC}-{tipo}-{serie}-{correlativo}.
type ArtifactRef struct {
	TaxID             string
	EstablishmentCode string
	DocType           string
	FileName          string // nombre base sin extensión
}

// ArtifactStore define el puerto del almacén de artefactos (colaborador externo).
type ArtifactStore interface {
	SaveUnsigned(ctx context.Context, ref ArtifactRef, data []byte) error
	SaveSigned(ctx context.Context, ref ArtifactRef, data []byte) error
	SaveCDR(ctx context.Context, ref ArtifactRef, data []byte) error
	SavePrinted(ctx context.Context, ref ArtifactRef, data []byte) error

	HasUnsigned(ctx context.Context, ref ArtifactRef) bool
	HasSigned(ctx context.Context, ref ArtifactRef) bool
	HasCDR(ctx context.Context, ref ArtifactRef) bool

	LoadSigned(ctx context.Context, ref ArtifactRef) ([]byte, error)
	LoadCDR(ctx context.Context, ref ArtifactRef) ([]byte, error)
}

// DocumentSigner delega la generación del XML y su firma criptográfica al
// servicio externo de firmado.
type DocumentSigner interface {
	GenerateAndSign(ctx context.Context, doc *entity.Document, details []*entity.DocumentDetail, company *entity.Company) (unsigned, signed []byte, err error)
}

// Renderer produce la representación imprimible del comprobante.
type Renderer interface {
	Render(ctx context.Context, doc *entity.Document, details []*entity.DocumentDetail, company *entity.Company) ([]byte, error)
}

// Notifier canal de publicación de eventos en tiempo real, fire-and-forget:
// una notificación perdida es recuperable porque el cliente siempre puede
// re-consultar el estado del comprobante.
type Notifier interface {
	Publish(ctx context.Context, room string, event Event)
}

// Enqueuer encola trabajos de envío para el pool de workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, job SubmissionJob) error
}
