package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/facturacion-api/internal/application/billing"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
)

var _ billing.Notifier = (*Notifier)(nil)

// Notifier publica eventos de ciclo de vida por pub/sub de Redis, un canal por
// sala. Es fire-and-forget: una publicación fallida se registra y se descarta;
// el cliente siempre puede re-consultar el estado del comprobante.
type Notifier struct {
	rdb *redis.Client
	log *logger.Logger
}

// NewNotifier construye el adaptador.
func NewNotifier(rdb *redis.Client, log *logger.Logger) *Notifier {
	return &Notifier{rdb: rdb, log: log}
}

// Publish serializa el evento y lo publica en la sala indicada.
func (n *Notifier) Publish(ctx context.Context, room string, event billing.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Error().Err(err).Str("sala", room).Msg("no se pudo serializar el evento")
		return
	}
	if err := n.rdb.Publish(ctx, room, payload).Err(); err != nil {
		n.log.Warn().Err(err).Str("sala", room).Str("evento", event.Type).
			Msg("publicación de notificación fallida")
	}
}
