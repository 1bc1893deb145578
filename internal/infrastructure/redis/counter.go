package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/facturacion-api/internal/application/billing"
)

var _ billing.CounterCache = (*CounterCache)(nil)

// resyncIncrScript aplica resync + incremento como unidad atómica: si el
// espejo no existe o difiere del valor durable, se sobrescribe con él antes de
// incrementar. Ejecutar ambos pasos en un solo script evita la pérdida de
// actualización entre dos asignadores que detectan la desincronización a la vez.
var resyncIncrScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (not cur) or (tonumber(cur) ~= tonumber(ARGV[1])) then
  redis.call('SET', KEYS[1], ARGV[1])
end
return redis.call('INCR', KEYS[1])
`)

// CounterCache espejo volátil del contador de serie. El valor de registro vive
// en la base de datos; este espejo solo acelera la sección crítica y se
// auto-repara contra el durable en cada asignación.
type CounterCache struct {
	rdb *redis.Client
}

// NewCounterCache construye el adaptador.
func NewCounterCache(rdb *redis.Client) *CounterCache {
	return &CounterCache{rdb: rdb}
}

// ResyncAndIncrement reconcilia el espejo con el valor durable y devuelve el
// siguiente correlativo.
func (c *CounterCache) ResyncAndIncrement(ctx context.Context, key string, durable int64) (int64, error) {
	n, err := resyncIncrScript.Run(ctx, c.rdb, []string{key}, durable).Int64()
	if err != nil {
		return 0, fmt.Errorf("resync+incr de %s: %w", key, err)
	}
	return n, nil
}
