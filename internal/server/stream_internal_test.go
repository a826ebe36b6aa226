package server

import (
	"context"
	"testing"

	"github.com/spinhq/cadence/pkg/voice"
)

func TestPCMToBins(t *testing.T) {
	t.Parallel()

	t.Run("constant amplitude", func(t *testing.T) {
		t.Parallel()
		pcm := make([]int16, 960)
		for i := range pcm {
			pcm[i] = 8192 // 0.25 of full scale
		}
		bins := pcmToBins(pcm, 32)
		if len(bins) != 32 {
			t.Fatalf("len(bins) = %d, want 32", len(bins))
		}
		for i, b := range bins {
			if b != 64 {
				t.Errorf("bins[%d] = %d, want 64 (RMS 0.25 scaled)", i, b)
			}
		}
	})

	t.Run("silence", func(t *testing.T) {
		t.Parallel()
		bins := pcmToBins(make([]int16, 480), 8)
		for i, b := range bins {
			if b != 0 {
				t.Errorf("bins[%d] = %d, want 0", i, b)
			}
		}
	})

	t.Run("fewer samples than bins", func(t *testing.T) {
		t.Parallel()
		bins := pcmToBins([]int16{16384, 16384}, 32)
		if len(bins) != 2 {
			t.Fatalf("len(bins) = %d, want clamped to 2", len(bins))
		}
	})

	t.Run("full scale clamps to 255", func(t *testing.T) {
		t.Parallel()
		pcm := make([]int16, 100)
		for i := range pcm {
			pcm[i] = -32768
		}
		for i, b := range pcmToBins(pcm, 4) {
			if b != 255 {
				t.Errorf("bins[%d] = %d, want 255", i, b)
			}
		}
	})
}

func TestBytesToInt16s(t *testing.T) {
	t.Parallel()
	got := bytesToInt16s([]byte{0x00, 0x20, 0xFF, 0xFF, 0x01})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (odd trailing byte ignored)", len(got))
	}
	if got[0] != 8192 {
		t.Errorf("got[0] = %d, want 8192", got[0])
	}
	if got[1] != -1 {
		t.Errorf("got[1] = %d, want -1", got[1])
	}
}

func TestStreamSource(t *testing.T) {
	t.Parallel()

	src := newStreamSource()
	ch, err := src.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	src.push(voice.Frame{Bins: []byte{10}})
	f := <-ch
	if len(f.Bins) != 1 || f.Bins[0] != 10 {
		t.Errorf("received frame = %+v", f)
	}

	src.Stop()
	if _, ok := <-ch; ok {
		t.Error("channel still open after Stop")
	}

	// Pushes after Stop and repeated Stops must not panic.
	src.push(voice.Frame{Bins: []byte{1}})
	src.Stop()
}

func TestStreamSource_DropsWhenFull(t *testing.T) {
	t.Parallel()
	src := newStreamSource()
	if _, err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Channel capacity is 64; pushing more must not block.
	for i := 0; i < 200; i++ {
		src.push(voice.Frame{Bins: []byte{byte(i)}})
	}
	src.Stop()
}
