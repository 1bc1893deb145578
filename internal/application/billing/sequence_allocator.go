package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/facturacion-api/internal/domain"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
	"github.com/tu-usuario/facturacion-api/pkg/sunat"
)

// lockTTL expiración del lock de asignación. Corto a propósito: la sección
// crítica son dos lecturas y dos escrituras puntuales.
const lockTTL = 2 * time.Second

// Allocation resultado de una asignación de correlativo, ya formateado a ancho fijo.
type Allocation struct {
	Issued   string // correlativo emitido
	Previous string // correlativo anterior (para formateo en pantalla)
}

// SequenceAllocator asigna el siguiente correlativo de una (punto de venta, serie)
// bajo exclusión mutua distribuida. El contador de registro vive en la base de
// datos; el espejo rápido se reconcilia contra él dentro de la sección crítica,
// de modo que la pérdida del espejo (ej: evicción de caché) nunca reutiliza números.
type SequenceAllocator struct {
	locker     Locker
	cache      CounterCache
	seriesRepo repository.SeriesRepository
	log        *logger.Logger
}

// NewSequenceAllocator construye el asignador.
func NewSequenceAllocator(locker Locker, cache CounterCache, seriesRepo repository.SeriesRepository, log *logger.Logger) *SequenceAllocator {
	return &SequenceAllocator{locker: locker, cache: cache, seriesRepo: seriesRepo, log: log}
}

// Allocate emite el siguiente correlativo para (posID, seriesCode).
//
// Devuelve domain.ErrLockConflict si otra asignación de la misma serie está en
// curso (el caller reintenta tras una pausa corta) y domain.ErrSeriesNotFound
// si la serie no está configurada. Cualquier otra falla de persistencia es
// fatal para esta asignación.
//
// Ante desacuerdo entre espejo y contador durable, el durable manda: el espejo
// se sobrescribe antes de incrementar, en ambas direcciones. Si la escritura
// durable posterior falla, el espejo queda adelantado y la siguiente
// asignación lo reconcilia de vuelta.
func (a *SequenceAllocator) Allocate(ctx context.Context, posID, seriesCode string) (*Allocation, error) {
	key := posID + ":" + seriesCode

	lease, err := a.locker.Acquire(ctx, "lock:"+key, lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rErr := lease.Release(ctx); rErr != nil {
			a.log.Warn().Err(rErr).Str("serie", key).Msg("no se pudo liberar el lock de asignación")
		}
	}()

	series, err := a.seriesRepo.GetByPOSAndCode(ctx, posID, seriesCode)
	if err != nil {
		return nil, fmt.Errorf("leer contador durable de %s: %w", key, err)
	}
	if series == nil || !series.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrSeriesNotFound, key)
	}

	next, err := a.cache.ResyncAndIncrement(ctx, "correlativo:"+key, series.LastNumber)
	if err != nil {
		return nil, fmt.Errorf("incrementar espejo de %s: %w", key, err)
	}

	if err := a.seriesRepo.UpdateLastNumber(ctx, series.ID, next); err != nil {
		// El espejo quedó adelantado del durable; el resync de la próxima
		// asignación lo corrige. El número no se entrega.
		return nil, fmt.Errorf("persistir correlativo %d de %s: %w", next, key, err)
	}

	return &Allocation{
		Issued:   sunat.PadCorrelativo(next),
		Previous: sunat.PadCorrelativo(next - 1),
	}, nil
}
