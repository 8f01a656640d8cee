package audio

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/virtmix/virtmix/internal/types"
	"github.com/virtmix/virtmix/internal/util"
)

// ErrCaptureActive is returned when a capture session already exists.
var ErrCaptureActive = errors.New("capture session already active")

// OpenFunc opens a sample source for a device.
type OpenFunc func(device string) (SampleSource, error)

// Scheduler drives one capture session on a fixed period: read a batch,
// reduce it to an RMS amplitude, push it into the waveform history and
// signal the renderer. Ticks for a session never overlap; the loop runs
// in a single goroutine and the ticker drops missed periods.
type Scheduler struct {
	open    OpenFunc
	buffer  *WaveformBuffer
	tick    time.Duration
	batch   int
	refresh chan struct{}

	mu     sync.Mutex
	source SampleSource
	device string
	stop   chan struct{}
	done   chan struct{}
}

// NewScheduler returns a Scheduler with the default tick, batch size and
// history length.
func NewScheduler(open OpenFunc) *Scheduler {
	return &Scheduler{
		open:    open,
		buffer:  NewWaveformBuffer(types.WaveformHistory),
		tick:    types.CaptureTick,
		batch:   types.CaptureBatchSize,
		refresh: make(chan struct{}, 1),
	}
}

// Start opens the device and begins the tick loop. At most one session
// may be active.
func (s *Scheduler) Start(device string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source != nil {
		return ErrCaptureActive
	}

	source, err := s.open(device)
	if err != nil {
		return util.WrapError("open capture source", err)
	}

	s.source = source
	s.device = device
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(source, s.stop, s.done)
	return nil
}

// run is the per-session tick loop.
func (s *Scheduler) run(source SampleSource, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			samples := source.ReadSamples(s.batch)
			s.buffer.Push(RMS(samples))
			s.signalRefresh()
		}
	}
}

// signalRefresh nudges the renderer without ever blocking the tick.
func (s *Scheduler) signalRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Stop cancels future ticks and closes the capture source. It is safe to
// call from any context and when no session is active.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return nil
	}
	source := s.source
	stop := s.stop
	done := s.done
	s.source = nil
	s.device = ""
	s.mu.Unlock()

	close(stop)
	<-done
	return source.Close()
}

// SetSource switches the capture to another device: stop, reset the
// waveform history, start again.
func (s *Scheduler) SetSource(device string) error {
	if err := s.Stop(); err != nil {
		slog.Warn("error stopping capture during source switch", "error", err)
	}
	s.buffer.Clear()
	return s.Start(device)
}

// Snapshot returns a consistent copy of the waveform history.
func (s *Scheduler) Snapshot() []float64 {
	return s.buffer.Snapshot()
}

// Updates signals once per completed tick; the renderer drains it at its
// own pace.
func (s *Scheduler) Updates() <-chan struct{} {
	return s.refresh
}

// Status returns the current capture session status.
func (s *Scheduler) Status() types.CaptureStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.CaptureStatus{
		Active: s.source != nil,
		Source: s.device,
	}
}
