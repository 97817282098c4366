// Memoized hybrid image compositing for one aligned image pair
package core

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"hybrid-images/internal/algorithms"
	"hybrid-images/internal/errs"
	"hybrid-images/internal/layers"
)

// DefaultSigma is the blend strength used when none is given.
const DefaultSigma = 7.5

// Options configures a Session.
type Options struct {
	// Parallel composites the colour channels concurrently.
	Parallel bool

	// Transformer overrides the DFT backend. Nil selects algorithms.DFT.
	Transformer algorithms.Transformer

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{Parallel: true}
}

// Session owns the aligned source planes of one image pair and caches, per
// sigma, the kernel pair and the finished composite. Entries are never
// evicted; a new image pair or offset needs a new Session.
type Session struct {
	// work is held shared by every call that reads native Mats and
	// exclusively by Close, so Close waits for in-flight composites.
	work sync.RWMutex

	mu            sync.Mutex
	first         []gocv.Mat
	second        []gocv.Mat
	canvas        image.Point
	transformSize image.Point
	kernels       map[float64]*algorithms.KernelPair
	composites    map[float64]gocv.Mat
	closed        bool

	flight     singleflight.Group
	compositor *algorithms.Compositor
	parallel   bool
	logger     *slog.Logger
	tracker    *sessionTracker
}

// NewSession takes per-channel floating point copies of the aligned pair;
// the caller keeps ownership of pair.
func NewSession(pair *layers.AlignedPair, opts Options) (*Session, error) {
	if pair == nil {
		return nil, fmt.Errorf("missing aligned pair: %w", errs.ErrInvalidInput)
	}
	if pair.First.Cols() != pair.Canvas.X || pair.First.Rows() != pair.Canvas.Y ||
		pair.Second.Cols() != pair.Canvas.X || pair.Second.Rows() != pair.Canvas.Y {
		return nil, fmt.Errorf("aligned images do not match canvas %v: %w", pair.Canvas, errs.ErrShapeMismatch)
	}

	transformSize, err := algorithms.TransformSize(pair.Canvas)
	if err != nil {
		return nil, err
	}

	first, err := ToPlanes(pair.First)
	if err != nil {
		return nil, fmt.Errorf("first image: %w", err)
	}
	second, err := ToPlanes(pair.Second)
	if err != nil {
		ClosePlanes(first)
		return nil, fmt.Errorf("second image: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{
		first:         first,
		second:        second,
		canvas:        pair.Canvas,
		transformSize: transformSize,
		kernels:       make(map[float64]*algorithms.KernelPair),
		composites:    make(map[float64]gocv.Mat),
		compositor:    algorithms.NewCompositor(opts.Transformer),
		parallel:      opts.Parallel,
		logger:        logger,
		tracker:       newSessionTracker(logger),
	}

	logger.Info("SESSION: Created",
		"canvas", fmt.Sprintf("%dx%d", pair.Canvas.X, pair.Canvas.Y),
		"transform_size", fmt.Sprintf("%dx%d", transformSize.X, transformSize.Y),
		"parallel", opts.Parallel)

	return s, nil
}

// NewSessionFromImages aligns first and second with aligner and opens a
// Session on the result.
func NewSessionFromImages(first, second gocv.Mat, offset image.Point, aligner *layers.Aligner, opts Options) (*Session, error) {
	if aligner == nil {
		aligner = layers.NewAligner()
	}
	pair, err := aligner.Align(first, second, offset)
	if err != nil {
		return nil, err
	}
	defer pair.Close()

	return NewSession(pair, opts)
}

// Composite returns the 8-bit hybrid image for sigma, computing it on first
// use. The returned Mat is owned by the Session and stays valid until Close;
// callers must not modify or close it. On error the Mat is the zero value.
func (s *Session) Composite(sigma float64) (gocv.Mat, error) {
	if err := checkSigma(sigma); err != nil {
		return gocv.Mat{}, err
	}

	s.work.RLock()
	defer s.work.RUnlock()

	if m, ok, err := s.lookupComposite(sigma); err != nil || ok {
		if ok {
			s.tracker.record("cache_hit", sigma, 0, nil)
		}
		return m, err
	}

	v, err, _ := s.flight.Do(strconv.FormatFloat(sigma, 'g', -1, 64), func() (interface{}, error) {
		// a concurrent flight for the same sigma may have finished already
		if m, ok, err := s.lookupComposite(sigma); err != nil || ok {
			return m, err
		}
		return s.build(sigma)
	})
	if err != nil {
		return gocv.Mat{}, err
	}
	return v.(gocv.Mat), nil
}

// Kernel returns the cached kernel pair for sigma, building it on first use.
// The pair is owned by the Session.
func (s *Session) Kernel(sigma float64) (*algorithms.KernelPair, error) {
	if err := checkSigma(sigma); err != nil {
		return nil, err
	}

	s.work.RLock()
	defer s.work.RUnlock()
	return s.kernel(sigma)
}

// kernel expects the caller to hold s.work.
func (s *Session) kernel(sigma float64) (*algorithms.KernelPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSessionClosed
	}
	if k, ok := s.kernels[sigma]; ok {
		return k, nil
	}

	start := time.Now()
	k, err := algorithms.BuildKernel(s.transformSize, sigma)
	s.tracker.record("build_kernel", sigma, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.kernels[sigma] = k
	return k, nil
}

func (s *Session) build(sigma float64) (gocv.Mat, error) {
	start := time.Now()

	kernels, err := s.kernel(sigma)
	if err != nil {
		return gocv.Mat{}, err
	}

	result, err := s.render(kernels)
	s.tracker.record("composite", sigma, time.Since(start), err)
	if err != nil {
		return gocv.Mat{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		result.Close()
		return gocv.Mat{}, errSessionClosed
	}
	s.composites[sigma] = result
	return result, nil
}

// render composites every channel and recombines them. Channels share only
// the read-only kernels and source planes.
func (s *Session) render(kernels *algorithms.KernelPair) (gocv.Mat, error) {
	channels := len(s.first)
	planes := make([]gocv.Mat, channels)
	done := make([]bool, channels)

	var g errgroup.Group
	if !s.parallel {
		g.SetLimit(1)
	}
	for ch := 0; ch < channels; ch++ {
		g.Go(func() error {
			out, err := s.compositor.Composite(s.first[ch], s.second[ch], kernels, s.transformSize)
			if err != nil {
				return fmt.Errorf("channel %d: %w", ch, err)
			}
			planes[ch] = out
			done[ch] = true
			return nil
		})
	}

	err := g.Wait()
	defer func() {
		for ch := range planes {
			if done[ch] {
				planes[ch].Close()
			}
		}
	}()
	if err != nil {
		return gocv.Mat{}, err
	}

	return FromPlanes(planes), nil
}

func (s *Session) lookupComposite(sigma float64) (gocv.Mat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gocv.Mat{}, false, errSessionClosed
	}
	m, ok := s.composites[sigma]
	return m, ok, nil
}

// Canvas returns the size of the aligned canvas and of every composite.
func (s *Session) Canvas() image.Point {
	return s.canvas
}

// TransformSize returns the padded DFT size used for every kernel.
func (s *Session) TransformSize() image.Point {
	return s.transformSize
}

// Sigmas returns the blend strengths with a cached composite.
func (s *Session) Sigmas() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]float64, 0, len(s.composites))
	for sigma := range s.composites {
		result = append(result, sigma)
	}
	return result
}

func (s *Session) Stats() Stats {
	return s.tracker.stats()
}

// History returns the most recent recorded operations, oldest first.
func (s *Session) History() []SessionOperation {
	return s.tracker.history()
}

// Close waits for composites in progress, then releases the source planes
// and every cached kernel and composite. Mats previously returned by
// Composite become invalid.
func (s *Session) Close() {
	s.work.Lock()
	defer s.work.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	ClosePlanes(s.first)
	ClosePlanes(s.second)
	for sigma, k := range s.kernels {
		k.Close()
		delete(s.kernels, sigma)
	}
	for sigma, m := range s.composites {
		m.Close()
		delete(s.composites, sigma)
	}
	s.logger.Debug("SESSION: Closed")
}

var errSessionClosed = fmt.Errorf("session is closed: %w", errs.ErrInvalidInput)

func checkSigma(sigma float64) error {
	if math.IsNaN(sigma) || sigma <= 0 {
		return fmt.Errorf("sigma must be > 0, got %v: %w", sigma, errs.ErrInvalidParameter)
	}
	return nil
}
