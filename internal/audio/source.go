package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/virtmix/virtmix/internal/proc"
	"github.com/virtmix/virtmix/internal/types"
)

// ErrSourceUnavailable is returned when no capture process can be spawned.
var ErrSourceUnavailable = errors.New("capture source unavailable")

// SampleSource delivers fixed-size batches of normalized audio samples
// without ever blocking on the producer.
type SampleSource interface {
	// ReadSamples returns exactly n samples. When fewer than 2n raw bytes
	// are buffered it returns n zero-valued samples (silence) instead of
	// blocking or erroring.
	ReadSamples(n int) []float64

	// Close terminates the capture process. Idempotent.
	Close() error
}

// pcmRingBytes is the capacity of the raw capture buffer, about two
// seconds of s16le mono at 44.1kHz. The drain goroutine drops the oldest
// bytes on overflow; stale audio is worthless for a live view.
const pcmRingBytes = 2 * types.SampleRate * types.BytesPerSample

// ParecSource captures one device via a parec subprocess. The subprocess
// writes a headerless PCM stream on stdout; a drain goroutine moves it
// into a bounded ring from which ReadSamples takes whole batches.
type ParecSource struct {
	sup     *proc.Supervisor
	managed *proc.Managed

	mu   sync.Mutex
	ring []byte
	head int
	size int

	closeOnce sync.Once
	closeErr  error
}

// OpenParec spawns a parec capture process for the given device. An
// empty bin falls back to PATH lookup.
func OpenParec(sup *proc.Supervisor, bin, device string) (*ParecSource, error) {
	if bin == "" {
		bin = "parec"
	}
	cmd := exec.Command(bin,
		"--device", device,
		"--format=s16le",
		fmt.Sprintf("--rate=%d", types.SampleRate),
		fmt.Sprintf("--channels=%d", types.Channels),
		fmt.Sprintf("--latency-msec=%d", types.CaptureLatencyMs),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	managed, err := sup.Spawn(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	s := &ParecSource{
		sup:     sup,
		managed: managed,
		ring:    make([]byte, pcmRingBytes),
	}
	go s.drain(stdout)

	slog.Info("capture started", "device", device, "pid", managed.Pid())
	return s, nil
}

// drain moves capture output into the ring until the process exits.
func (s *ParecSource) drain(r io.Reader) {
	buf := make([]byte, 8192)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	if err := s.managed.Wait(); err != nil {
		slog.Debug("capture process exited", "error", err)
	}
}

// write appends bytes to the ring, dropping the oldest on overflow.
func (s *ParecSource) write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range p {
		s.ring[(s.head+s.size)%len(s.ring)] = b
		if s.size < len(s.ring) {
			s.size++
		} else {
			s.head = (s.head + 1) % len(s.ring)
		}
	}
}

// ReadSamples implements SampleSource. A stalled or dead producer yields
// silence, never an error: the visualization must not stall with it.
func (s *ParecSource) ReadSamples(n int) []float64 {
	want := n * types.BytesPerSample

	s.mu.Lock()
	if s.size < want {
		s.mu.Unlock()
		return make([]float64, n)
	}

	raw := make([]byte, want)
	for i := range want {
		raw[i] = s.ring[(s.head+i)%len(s.ring)]
	}
	s.head = (s.head + want) % len(s.ring)
	s.size -= want
	s.mu.Unlock()

	return DecodeSamples(raw, nil)
}

// Close implements SampleSource: interrupt the capture group, escalate to
// kill if unresponsive.
func (s *ParecSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.sup.Terminate(s.managed)
	})
	return s.closeErr
}
