package rs

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config holds the Reed-Solomon stage's configuration, per spec.md §6.
type Config struct {
	Interleave  int
	VirtualFill int
	Correction  bool
	Detection   bool
	NumThreads  int
	BufferSize  int
}

// BlockSource is the interface the RS stage pulls un-decoded blocks from;
// it is satisfied by *framesync.Stage.
type BlockSource interface {
	Next() ([]byte, error)
}

// Result is one decoded, parity-stripped block plus its merged Integrity.
type Result struct {
	Block     []byte
	Integrity Integrity
}

type job struct {
	block  []byte
	result chan jobResult
}

type jobResult struct {
	res Result
	err error
}

// Stage decodes successive blocks from an upstream BlockSource, fanning the
// per-block work out across a worker pool while preserving input order on
// output, per spec.md §4.3/§5. It is the pipeline's sole parallel
// component.
//
// The worker pool is grounded in xtaci/kcp-go's fecEncoder/fecDecoder
// (github.com/xtaci/kcptun vendor/.../kcp-go/v5/fec.go), generalized from
// its fixed generalized-RS erasure scheme to this package's RS(255,223) codec, and
// its channel-based fan-out from generic/multiport.go. Order preservation
// uses a FIFO queue of per-job result channels rather than an index map:
// Next always waits on the oldest in-flight job first, so results are
// released in submission order regardless of which worker finishes first.
type Stage struct {
	cfg   Config
	codec *Codec

	jobs    chan job
	pending chan chan jobResult

	cancel context.CancelFunc
	group  *errgroup.Group

	closeOnce sync.Once
	drainErr  error
}

// NewStage constructs a Stage pulling blocks from upstream. NumThreads <= 0
// means "use available parallelism"; BufferSize <= 0 is treated as 1.
func NewStage(upstream BlockSource, cfg Config) *Stage {
	threads := cfg.NumThreads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	s := &Stage{
		cfg:     cfg,
		codec:   &Codec{Correction: cfg.Correction, Detection: cfg.Detection},
		jobs:    make(chan job, bufSize),
		pending: make(chan chan jobResult, bufSize),
		cancel:  cancel,
		group:   group,
	}

	for i := 0; i < threads; i++ {
		group.Go(func() error {
			return s.worker(gctx)
		})
	}

	group.Go(func() error {
		return s.produce(gctx, upstream)
	})

	return s
}

func (s *Stage) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-s.jobs:
			if !ok {
				return nil
			}
			block, integrity, err := s.decodeBlock(j.block)
			select {
			case j.result <- jobResult{res: Result{Block: block, Integrity: integrity}, err: err}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// produce pulls blocks from upstream in order, tagging each with a result
// channel and enqueueing that channel onto pending before handing the job
// to the worker pool; this is what lets Next() release results in order.
func (s *Stage) produce(ctx context.Context, upstream BlockSource) error {
	defer close(s.jobs)
	defer close(s.pending)

	for {
		block, err := upstream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "rs: reading upstream block")
		}

		result := make(chan jobResult, 1)
		select {
		case s.jobs <- job{block: block, result: result}:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case s.pending <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Stage) decodeBlock(block []byte) ([]byte, Integrity, error) {
	codewords, err := Deinterleave(block, s.cfg.Interleave, s.cfg.VirtualFill)
	if err != nil {
		return nil, Integrity{Kind: Failed}, nil
	}

	results := make([]Integrity, len(codewords))
	stripped := make([][]byte, len(codewords))
	for i, cw := range codewords {
		decoded, integrity := s.codec.DecodeShortened(cw, s.cfg.VirtualFill)
		results[i] = integrity
		if len(decoded) >= NumRoots {
			stripped[i] = decoded[:len(decoded)-NumRoots]
		} else {
			stripped[i] = decoded
		}
	}

	return Interleave(stripped), Merge(results), nil
}

// Next returns the next decoded block in upstream order, or io.EOF once
// the upstream source and worker pool are both drained.
func (s *Stage) Next() ([]byte, Integrity, error) {
	resultCh, ok := <-s.pending
	if !ok {
		if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return nil, Integrity{}, err
		}
		return nil, Integrity{}, io.EOF
	}

	r := <-resultCh
	if r.err != nil {
		return nil, Integrity{}, r.err
	}
	return r.res.Block, r.res.Integrity, nil
}

// Close terminates the worker pool and drains its channels without
// deadlock, per spec.md §5's cancellation contract. It is safe to call
// multiple times and safe to call without having drained Next() to EOF.
func (s *Stage) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.drainErr = s.group.Wait()
		for range s.pending {
		}
	})
	if errors.Is(s.drainErr, context.Canceled) {
		return nil
	}
	return s.drainErr
}
