package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/facturacion-api/internal/application/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain"
)

var _ billing.Locker = (*Locker)(nil)

// Locker exclusión mutua distribuida sobre Redis: SET NX PX sin espera.
// La expiración evita que un proceso caído deje la serie bloqueada.
type Locker struct {
	rdb *redis.Client
}

// NewLocker construye el adaptador.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Acquire intenta tomar el lock sin esperar. Si ya está tomado devuelve
// domain.ErrLockConflict; cualquier otra falla se reporta como error de
// infraestructura.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (billing.Unlocker, error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("adquirir lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockConflict, key)
	}
	return &lease{rdb: l.rdb, key: key, token: token}, nil
}

// releaseScript borra el lock solo si el token coincide: un lock expirado y
// re-adquirido por otro proceso no debe ser liberado por el dueño anterior.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

type lease struct {
	rdb   *redis.Client
	key   string
	token string
}

// Release libera el lock de forma incondicional para el caller; si el lock ya
// expiró no es un error.
func (s *lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{s.key}, s.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("liberar lock %s: %w", s.key, err)
	}
	return nil
}
