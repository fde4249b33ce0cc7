// Package mc runs Monte Carlo simulations for option pricing, price
// forecasting, simulated VaR and short-rate bond pricing.
//
// Every run splits its iterations into fixed-size chunks. Each chunk draws its
// seed from the caller's source before any work starts and results are
// combined in chunk order, so a given seed produces the same numbers whatever
// the number of workers.
package mc

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

const DefaultChunkSize = 4096

// Engine holds the execution settings shared by every simulation.
type Engine struct {
	// Workers bounds the number of chunks simulated concurrently.
	Workers int
	// ChunkSize is the number of iterations per chunk. Changing it changes
	// the random streams, and so the results, for a given seed.
	ChunkSize int
	// MaxIterations caps any single run when positive.
	MaxIterations int
	Logger        *zap.Logger
	// Progress, if set, receives the number of finished iterations after
	// every chunk. Calls are serialised.
	Progress func(done int)
}

type Option func(*Engine)

func WithWorkers(n int) Option { return func(e *Engine) { e.Workers = n } }

func WithChunkSize(n int) Option { return func(e *Engine) { e.ChunkSize = n } }

func WithMaxIterations(n int) Option { return func(e *Engine) { e.MaxIterations = n } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.Logger = l } }

func WithProgress(f func(done int)) Option { return func(e *Engine) { e.Progress = f } }

// NewEngine returns an engine using all CPUs and DefaultChunkSize unless
// overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		Workers:   runtime.NumCPU(),
		ChunkSize: DefaultChunkSize,
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logger() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) chunkSize() int {
	if e.ChunkSize < 1 {
		return DefaultChunkSize
	}
	return e.ChunkSize
}

// chunks is the number of chunks a run of n iterations is split into.
func (e *Engine) chunks(n int) int {
	return (n + e.chunkSize() - 1) / e.chunkSize()
}

// budget applies MaxIterations to a requested iteration count.
func (e *Engine) budget(name string, iterations int) (int, error) {
	if err := qerr.Count("iterations", iterations, 1); err != nil {
		return 0, err
	}
	if e.MaxIterations > 0 && iterations > e.MaxIterations {
		e.logger().Warn("iteration cutoff",
			zap.String("run", name),
			zap.Int("requested", iterations),
			zap.Int("max", e.MaxIterations))
		return e.MaxIterations, nil
	}
	return iterations, nil
}

// chunk is one unit of work: iterations [Offset, Offset+Size) of the run,
// simulated from its own source.
type chunk struct {
	Index  int
	Offset int
	Size   int
	Src    rand.Source
}

// run splits n iterations into chunks and calls fn for each on a bounded
// pool. fn must write only to storage owned by its chunk index.
func (e *Engine) run(ctx context.Context, name string, n int, src rand.Source, fn func(c chunk) error) error {
	if src == nil {
		return qerr.Validation("src", "a random source is required")
	}
	size := e.chunkSize()
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	count := e.chunks(n)
	seeds := util.Seeds(src, count)

	log := e.logger().With(zap.String("run", name))
	log.Debug("simulation started",
		zap.Int("iterations", n),
		zap.Int("chunks", count),
		zap.Int("workers", workers))

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < count; i++ {
		if gctx.Err() != nil {
			break
		}
		c := chunk{Index: i, Offset: i * size, Size: size, Src: util.NewSource(seeds[i])}
		if c.Offset+c.Size > n {
			c.Size = n - c.Offset
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(c); err != nil {
				return err
			}
			if e.Progress != nil {
				mu.Lock()
				done += c.Size
				e.Progress(done)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("simulation finished", zap.Int("iterations", n))
	return nil
}

// moments accumulates a sum and a sum of squares.
type moments struct {
	n          int
	sum, sumSq float64
}

func (m *moments) add(x float64) {
	m.n++
	m.sum += x
	m.sumSq += x * x
}

func combine(parts []moments) moments {
	var out moments
	for _, p := range parts {
		out.n += p.n
		out.sum += p.sum
		out.sumSq += p.sumSq
	}
	return out
}

func (m moments) mean() float64 { return m.sum / float64(m.n) }

// stdErr is the standard error of the mean using the unbiased variance.
func (m moments) stdErr() float64 {
	if m.n < 2 {
		return 0
	}
	mean := m.mean()
	v := (m.sumSq - float64(m.n)*mean*mean) / float64(m.n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v / float64(m.n))
}
