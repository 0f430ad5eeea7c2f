// Package relay adapts a provider's chunk stream into a server-sent event
// stream with explicit termination framing.
package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"warmstream/internal/core"
)

// Sentinel is the terminal frame payload signaling end-of-stream to the
// consumer, distinct from any chunk payload.
const Sentinel = "[DONE]"

// errorFrame is the terminal frame emitted when the provider stream fails.
type errorFrame struct {
	Error   string `json:"error"`
	IsFinal bool   `json:"is_final"`
}

// Stream consumes events until the final chunk, a terminal error, or ctx
// cancellation, writing one SSE frame per event to w. It performs no buffering
// beyond the current chunk; a slow consumer naturally slows provider
// consumption. Stream never propagates a provider error upward: a mid-stream
// failure becomes exactly one error frame with the final flag set, after which
// the stream ends cleanly.
func Stream(ctx context.Context, w io.Writer, events <-chan core.StreamEvent) {
	for {
		// Check cancellation before draining another ready event so a
		// disconnected client stops consumption within one step.
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			// Client disconnected; stop consuming so the provider's
			// producer can exit.
			return

		case ev, ok := <-events:
			if !ok {
				// The provider contract guarantees a final chunk before
				// close. Do not block waiting past it.
				return
			}

			if ev.Err != nil {
				writeFrame(w, errorFrame{Error: ev.Err.Error(), IsFinal: true})
				return
			}

			if ev.Chunk.Content != "" {
				if err := writeFrame(w, ev.Chunk); err != nil {
					return
				}
			}

			if ev.Chunk.IsFinal {
				if err := writeFrame(w, ev.Chunk); err != nil {
					return
				}
				writeSentinel(w)
				return
			}
		}
	}
}

// writeFrame serializes v as one SSE data frame and flushes it out.
func writeFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal stream frame", "error", err)
		return err
	}

	if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
		return err
	}
	flush(w)
	return nil
}

// writeSentinel emits the terminal marker frame.
func writeSentinel(w io.Writer) {
	if _, err := io.WriteString(w, "data: "+Sentinel+"\n\n"); err != nil {
		return
	}
	flush(w)
}

func flush(w io.Writer) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
