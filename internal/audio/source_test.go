package audio

import (
	"testing"

	"github.com/virtmix/virtmix/internal/types"
)

func newTestRing(capacity int) *ParecSource {
	return &ParecSource{ring: make([]byte, capacity)}
}

func TestReadSamplesUnderrunYieldsSilence(t *testing.T) {
	s := newTestRing(64)

	// Nothing buffered: a full batch of zeros, never a short read.
	got := s.ReadSamples(10)
	if len(got) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("sample %d: expected silence, got %f", i, v)
		}
	}

	// A partial buffer still underruns; the stored bytes stay put.
	s.write([]byte{0x00, 0x40, 0x00, 0x40})
	got = s.ReadSamples(10)
	for i, v := range got {
		if v != 0 {
			t.Errorf("sample %d: expected silence on partial fill, got %f", i, v)
		}
	}

	// Once enough bytes arrive the real data is still there.
	s.write(make([]byte, 16))
	got = s.ReadSamples(10)
	if got[0] != 0.5 || got[1] != 0.5 {
		t.Errorf("expected buffered samples to survive underrun reads, got %f, %f", got[0], got[1])
	}
}

func TestReadSamplesConsumesInOrder(t *testing.T) {
	s := newTestRing(64)
	s.write([]byte{
		0x00, 0x40, // 0.5
		0x00, 0xC0, // -0.5
		0x00, 0x00, // 0
		0x00, 0x80, // -1.0
	})

	got := s.ReadSamples(2)
	if got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("first batch: expected [0.5 -0.5], got %v", got)
	}

	got = s.ReadSamples(2)
	if got[0] != 0 || got[1] != -1.0 {
		t.Errorf("second batch: expected [0 -1], got %v", got)
	}

	// Drained: back to silence.
	got = s.ReadSamples(2)
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("drained ring: expected silence, got %v", got)
	}
}

func TestWriteOverflowDropsOldest(t *testing.T) {
	s := newTestRing(4 * types.BytesPerSample)

	s.write([]byte{
		0x00, 0x40,
		0x00, 0x40,
		0x00, 0x40,
		0x00, 0x40,
	})
	// Two more samples push the two oldest out.
	s.write([]byte{0x00, 0xC0, 0x00, 0xC0})

	got := s.ReadSamples(4)
	want := []float64{0.5, 0.5, -0.5, -0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}
