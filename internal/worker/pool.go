package worker

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/andresmejia3/facemap/internal/geometry"
	"github.com/andresmejia3/facemap/internal/landmarks"
	"github.com/andresmejia3/facemap/internal/utils"
)

// Pool hands each call to an idle worker. It satisfies the same collaborator
// interfaces as a single PythonWorker.
type Pool struct {
	all  []*PythonWorker
	idle chan *PythonWorker

	mu      sync.Mutex
	failed  *PythonWorker
	healthy int
	dead    chan struct{} // closed once every worker is broken
}

// NewPool starts n worker processes. If any fails to start, the ones already
// running are closed.
func NewPool(n int, opts Options) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("pool needs at least one worker, got %d", n)
	}
	workers := make([]*PythonWorker, 0, n)
	for i := 0; i < n; i++ {
		w, err := NewPythonWorker(i, opts)
		if err != nil {
			for _, started := range workers {
				started.Close()
			}
			return nil, err
		}
		workers = append(workers, w)
	}
	return NewPoolFromWorkers(workers...), nil
}

// NewPoolFromWorkers wraps already running workers.
func NewPoolFromWorkers(workers ...*PythonWorker) *Pool {
	p := &Pool{
		all:     workers,
		idle:    make(chan *PythonWorker, len(workers)),
		healthy: len(workers),
		dead:    make(chan struct{}),
	}
	for _, w := range workers {
		p.idle <- w
	}
	if len(workers) == 0 {
		close(p.dead)
	}
	return p
}

// Size reports how many workers the pool holds.
func (p *Pool) Size() int { return len(p.all) }

func (p *Pool) acquire(ctx context.Context) (*PythonWorker, error) {
	select {
	case w := <-p.idle:
		return w, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.dead:
		return nil, transportErr("no healthy workers left")
	}
}

// release returns w to the idle set. A broken worker is killed instead, so a
// late reply can never be read as the answer to someone else's request.
func (p *Pool) release(w *PythonWorker, err error) {
	if err != nil {
		p.mu.Lock()
		p.failed = w
		p.mu.Unlock()
	}
	if w.Broken() == nil {
		p.idle <- w
		return
	}

	if w.Cmd != nil && w.Cmd.Process != nil {
		w.Cmd.Process.Kill()
	}
	p.mu.Lock()
	p.healthy--
	if p.healthy == 0 {
		close(p.dead)
	}
	p.mu.Unlock()
}

// Healthy reports how many workers can still serve requests.
func (p *Pool) Healthy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}

// Failed returns the command of the last worker whose call errored, or nil.
// Its captured stderr is what utils.ShowError prints as the crash log.
func (p *Pool) Failed() *utils.SafeCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed == nil {
		return nil
	}
	return p.failed.Cmd
}

func (p *Pool) DetectFaces(ctx context.Context, img image.Image) ([]geometry.DetectorBox, error) {
	w, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	boxes, err := w.DetectFaces(ctx, img)
	p.release(w, err)
	return boxes, err
}

func (p *Pool) DetectLandmarks(ctx context.Context, img image.Image) ([]landmarks.Set, error) {
	w, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	sets, err := w.DetectLandmarks(ctx, img)
	p.release(w, err)
	return sets, err
}

func (p *Pool) EncodeIdentity(ctx context.Context, img image.Image) ([][]float64, error) {
	w, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	vecs, err := w.EncodeIdentity(ctx, img)
	p.release(w, err)
	return vecs, err
}

// Close shuts every worker down and waits for the processes to exit.
func (p *Pool) Close() {
	for _, w := range p.all {
		w.Close()
	}
}
