package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/spinhq/cadence/internal/app"
	"github.com/spinhq/cadence/internal/catalog"
	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/pkg/voice"
)

// Stream codecs accepted in the hello message.
const (
	codecPCM16 = "pcm16"
	codecOpus  = "opus"
)

// streamChannels is the channel count expected from clients. Microphone
// capture is mono.
const streamChannels = 1

// helloMessage is the first text message on a stream connection. Type selects
// the session kind; scene_id is required for scenario sessions.
type helloMessage struct {
	Type        string `json:"type"`
	Codec       string `json:"codec"`
	SampleRate  int    `json:"sample_rate"`
	SceneID     string `json:"scene_id"`
	TechniqueID string `json:"technique_id"`
}

// controlMessage is any later text message on the connection. Only
// {"type":"stop"} is recognised.
type controlMessage struct {
	Type string `json:"type"`
}

// errorMessage is sent before closing a connection that cannot proceed.
type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// resultMessage wraps the session result sent after a stop.
type resultMessage struct {
	Type string `json:"type"`
	*app.SessionResult
}

// handleStream handles GET /v1/stream: accept the websocket, read the hello,
// start a session over a channel-backed frame source, fold incoming audio
// into frames until a stop message or disconnect, then complete the session
// and send the analysis back.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("stream accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	hello, err := readHello(ctx, conn)
	if err != nil {
		closeWithError(ctx, conn, websocket.StatusPolicyViolation, err)
		return
	}
	if hello.SampleRate == 0 {
		hello.SampleRate = s.sampleRate
	}

	var decoder *gopus.Decoder
	if hello.Codec == codecOpus {
		decoder, err = gopus.NewDecoder(hello.SampleRate, streamChannels)
		if err != nil {
			closeWithError(ctx, conn, websocket.StatusInternalError, fmt.Errorf("create opus decoder: %w", err))
			return
		}
	}

	src := newStreamSource()
	typ := progression.SessionType(hello.Type)
	if err := s.sessions.Start(ctx, src, typ, hello.SceneID, hello.TechniqueID); err != nil {
		closeWithError(ctx, conn, websocket.StatusPolicyViolation, err)
		return
	}

	s.readFrames(ctx, conn, hello, decoder, src)

	result, err := s.sessions.Stop(ctx)
	if err != nil {
		closeWithError(ctx, conn, websocket.StatusInternalError, err)
		return
	}
	if err := writeMessage(ctx, conn, resultMessage{Type: "result", SessionResult: result}); err != nil {
		slog.Warn("stream result write failed", "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// readHello reads and validates the first text message of a connection.
func readHello(ctx context.Context, conn *websocket.Conn) (helloMessage, error) {
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		return helloMessage{}, fmt.Errorf("read hello: %w", err)
	}
	if msgType != websocket.MessageText {
		return helloMessage{}, errors.New("hello must be a text message")
	}

	var hello helloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		return helloMessage{}, fmt.Errorf("decode hello: %w", err)
	}
	if !progression.SessionType(hello.Type).IsValid() {
		return helloMessage{}, fmt.Errorf("unknown session type %q", hello.Type)
	}
	if hello.Type == string(progression.SessionScenario) && hello.SceneID == "" {
		return helloMessage{}, errors.New("scene_id is required for scenario sessions")
	}
	if hello.TechniqueID != "" {
		if _, ok := catalog.TechniqueByID(hello.TechniqueID); !ok {
			return helloMessage{}, fmt.Errorf("unknown technique %q", hello.TechniqueID)
		}
	}
	if hello.Codec == "" {
		hello.Codec = codecPCM16
	}
	if hello.Codec != codecPCM16 && hello.Codec != codecOpus {
		return helloMessage{}, fmt.Errorf("unknown codec %q", hello.Codec)
	}
	return hello, nil
}

// readFrames consumes binary audio messages until a stop message, a read
// error, or context cancellation. Undecodable packets are dropped, not fatal.
func (s *Server) readFrames(ctx context.Context, conn *websocket.Conn, hello helloMessage, decoder *gopus.Decoder, src *streamSource) {
	// 120 ms of samples bounds a single opus packet.
	maxFrameSize := hello.SampleRate * 120 / 1000

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			// Disconnect ends the session the same way an explicit stop does.
			slog.Debug("stream read ended", "error", err)
			return
		}

		switch msgType {
		case websocket.MessageText:
			var ctl controlMessage
			if err := json.Unmarshal(data, &ctl); err != nil {
				slog.Debug("undecodable control message dropped", "error", err)
				continue
			}
			if ctl.Type == "stop" {
				return
			}
		case websocket.MessageBinary:
			var pcm []int16
			if decoder != nil {
				pcm, err = decoder.Decode(data, maxFrameSize, false)
				if err != nil {
					slog.Debug("opus packet dropped", "error", err)
					continue
				}
			} else {
				pcm = bytesToInt16s(data)
			}
			if len(pcm) == 0 {
				continue
			}
			src.push(voice.Frame{Bins: pcmToBins(pcm, s.bins)})
			s.metrics.FramesProcessed.Add(ctx, 1)
		}
	}
}

// closeWithError sends an error message and closes the connection.
func closeWithError(ctx context.Context, conn *websocket.Conn, status websocket.StatusCode, err error) {
	if werr := writeMessage(ctx, conn, errorMessage{Type: "error", Error: err.Error()}); werr != nil {
		slog.Debug("stream error write failed", "error", werr)
	}
	conn.Close(status, err.Error())
}

// writeMessage sends v as a JSON text message.
func writeMessage(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("server: marshal message: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// pcmToBins folds a PCM chunk into n magnitude bins: the chunk is split into
// n contiguous segments and each segment's RMS level is scaled to 0–255. The
// result approximates a magnitude frame well enough for the volume-driven
// metrics downstream.
func pcmToBins(pcm []int16, n int) []byte {
	if n <= 0 {
		n = 1
	}
	if n > len(pcm) {
		n = len(pcm)
	}
	bins := make([]byte, n)
	segment := len(pcm) / n
	for i := range bins {
		start := i * segment
		end := start + segment
		if i == n-1 {
			end = len(pcm)
		}
		var sum float64
		for _, sample := range pcm[start:end] {
			f := float64(sample) / 32768
			sum += f * f
		}
		rms := math.Sqrt(sum / float64(end-start))
		bins[i] = byte(math.Min(255, math.Round(rms*255)))
	}
	return bins
}

// bytesToInt16s converts little-endian bytes to int16 PCM samples. A trailing
// odd byte is ignored.
func bytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}

// streamSource adapts the websocket read loop to [voice.Source] via a
// buffered frame channel. push drops frames once the sampler has released the
// source, never blocks the read loop on a closed channel.
type streamSource struct {
	mu     sync.Mutex
	ch     chan voice.Frame
	closed bool
}

func newStreamSource() *streamSource {
	return &streamSource{ch: make(chan voice.Frame, 64)}
}

// Start implements [voice.Source].
func (s *streamSource) Start(_ context.Context) (<-chan voice.Frame, error) {
	return s.ch, nil
}

// push delivers a frame to the sampler. Frames arriving after Stop, or when
// the sampler lags behind, are dropped.
func (s *streamSource) push(f voice.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- f:
	default:
	}
}

// Stop implements [voice.Source].
func (s *streamSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}
