// Package stress drives randomized concurrent insert/remove/grow/shrink traffic
// against a full transfer-cache hierarchy (real manager, real central free
// lists) and verifies at shutdown that no object was lost, duplicated or torn
// and that every cache still satisfies its occupancy bounds.
package stress

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/Borislavv/transfer-cache/pkg/config"
	"github.com/Borislavv/transfer-cache/pkg/freelist"
	"github.com/Borislavv/transfer-cache/pkg/rate"
	synced "github.com/Borislavv/transfer-cache/pkg/sync"
	"github.com/Borislavv/transfer-cache/pkg/transfercache"
	"github.com/Borislavv/transfer-cache/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 10

// Runner owns one cache hierarchy and a pool of workers poking it.
type Runner struct {
	cfg       *config.Config
	id        string
	manager   *transfercache.CacheManager[Object]
	freelists []*freelist.Central[Object]
	limiter   rate.Limiter
	batches   *synced.BatchPool[[]Object]

	ops       atomic.Uint64
	inserted  atomic.Uint64 // objects pushed in by workers
	removed   atomic.Uint64 // objects pulled out by workers
	corrupted atomic.Uint64
	seed      atomic.Uint64
}

// New builds the hierarchy the runner stresses: one central free list and one
// transfer cache per size class, capacity arbitrated by a real manager.
func New(cfg *config.Config) *Runner {
	r := &Runner{cfg: cfg, id: uuid.NewString()}

	classes := transfercache.DefaultSizeClasses
	if cfg.NumSizeClasses > 0 && cfg.NumSizeClasses < len(classes) {
		classes = classes[:cfg.NumSizeClasses]
	}

	span := cfg.SpanSizeInBatches
	if span <= 0 {
		span = 1
	}

	r.freelists = make([]*freelist.Central[Object], len(classes))
	for sc := range classes {
		r.freelists[sc] = freelist.NewCentral(span, func() (Object, error) {
			return NewObject(r.seed.Add(1)), nil
		})
	}
	r.manager = transfercache.NewCacheManager(
		transfercache.Mode(cfg.TransferCacheMode),
		classes,
		func(sc int) transfercache.CentralFreeList[Object] { return r.freelists[sc] },
	)

	// Insert batches are recycled from removed ones, sized for the largest class.
	maxBatch := 0
	for sc := range classes {
		if n := r.manager.NumObjectsToMove(sc); n > maxBatch {
			maxBatch = n
		}
	}
	r.batches = synced.NewBatchPool(64, func() []Object {
		return make([]Object, 0, maxBatch)
	})
	return r
}

// Manager exposes the stressed hierarchy, e.g. for the stats API.
func (r *Runner) Manager() *transfercache.CacheManager[Object] {
	return r.manager
}

// Run stresses the hierarchy until ctx is done, then verifies the final state.
func (r *Runner) Run(ctx context.Context) error {
	workers := r.cfg.StressWorkers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if r.cfg.StressRateLimit > 0 {
		r.limiter = rate.NewLimiter(ctx, r.cfg.StressRateLimit, r.cfg.StressRateLimit)
	}

	log.Info().Msgf("[stress] run %s started (workers: %d, mode: %s)",
		r.id, workers, r.cfg.TransferCacheMode)

	r.runReporter(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		seed := time.Now().UnixNano() + int64(i)
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seed))
			for gctx.Err() == nil {
				if r.limiter != nil && !r.limiter.Take(gctx) {
					break
				}
				r.poke(rnd)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	err := r.Verify()
	if err != nil {
		log.Err(err).Msgf("[stress] run %s finished dirty", r.id)
		return err
	}
	log.Info().Msgf("[stress] run %s finished clean (ops: %d)", r.id, r.ops.Load())
	return nil
}

// poke performs one random operation on a random size class, biased towards
// insert/remove traffic the way the allocator fast path would generate it.
func (r *Runner) poke(rnd *rand.Rand) {
	sc := rnd.Intn(r.manager.NumSizeClasses())
	cache := r.manager.Cache(sc)
	batchSize := r.manager.NumObjectsToMove(sc)
	r.ops.Add(1)

	switch rnd.Intn(10) {
	case 0:
		cache.Grow()
	case 1:
		cache.Shrink()
	case 2, 3, 4, 5:
		batch := r.batches.Get()[:0]
		for i := 0; i < batchSize; i++ {
			batch = append(batch, NewObject(r.seed.Add(1)))
		}
		cache.Insert(batch)
		r.inserted.Add(uint64(batchSize))
	default:
		batch, err := cache.Remove(batchSize)
		if err != nil {
			// The span allocator never fails here, so any error is a bug.
			r.corrupted.Add(1)
			return
		}
		for _, obj := range batch {
			if !obj.Valid() {
				r.corrupted.Add(1)
			}
		}
		r.removed.Add(uint64(len(batch)))
		r.batches.Put(batch)
	}
}

// Verify checks the post-shutdown state: capacity/occupancy invariants per
// cache, zero corrupted objects, and full conservation of objects across
// workers, caches and free lists.
func (r *Runner) Verify() error {
	if n := r.corrupted.Load(); n != 0 {
		return fmt.Errorf("stress: %d corrupted or unexpectedly missing objects", n)
	}

	var held, pooled, allocated uint64
	for sc := 0; sc < r.manager.NumSizeClasses(); sc++ {
		st := r.manager.Cache(sc).Stats()
		if st.Occupancy < 0 || st.Occupancy > st.Capacity || st.Capacity > transfercache.MaxCapacityInBatches {
			return fmt.Errorf("stress: size class %d broke occupancy bounds: occupancy %d, capacity %d",
				sc, st.Occupancy, st.Capacity)
		}
		held += uint64(st.Occupancy * st.BatchSize)
		pooled += uint64(r.freelists[sc].Length())
		allocated += r.freelists[sc].Allocated()
	}

	in := r.inserted.Load() + allocated
	out := r.removed.Load() + held + pooled
	if in != out {
		return errors.New("stress: object conservation broken: " +
			fmt.Sprintf("inserted+allocated %d != removed+cached+pooled %d", in, out))
	}
	return nil
}

func (r *Runner) runReporter(ctx context.Context) {
	interval := r.cfg.StressReportInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go func() {
		t := utils.NewTicker(ctx, interval)
		var last uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-t:
				total := r.ops.Load()
				log.Info().Msgf("[stress] run %s: %d ops (+%d), inserted: %d, removed: %d, budget: %d batches",
					r.id, total, total-last, r.inserted.Load(), r.removed.Load(), r.manager.TotalCapacity())
				last = total
			}
		}
	}()
}
