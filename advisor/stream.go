package advisor

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/smallnest/marketadvisor/report"
)

// Stream runs the workflow and reports it as events: the reasoning trace as it
// happens, the answer as token events, then one terminal done or error event.
// The turn is persisted before done is sent. The channel is closed after the
// terminal event, or early when ctx is cancelled.
func (a *Advisor) Stream(ctx context.Context, sessionID, query string, metadata map[string]any) <-chan Event {
	ch := make(chan Event, 16)

	go func() {
		defer close(ch)
		start := time.Now()

		send := func(e Event) bool {
			select {
			case ch <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(err error) {
			e := newEvent(EventError, nil)
			e.Content = "Error: " + err.Error()
			if ctx.Err() == nil {
				send(e)
				return
			}
			select {
			case ch <- e:
			default:
			}
		}

		s, err := a.run(ctx, sessionID, query, func(e Event) { send(e) })
		if err != nil {
			a.logger.Error("stream for session %s failed: %v", sessionID, err)
			fail(err)
			return
		}

		for _, chunk := range chunkRunes(s.FinalAnswer, a.chunkSize) {
			e := newEvent(EventToken, nil)
			e.Content = chunk
			if !send(e) {
				fail(ctx.Err())
				return
			}
			if err := sleepContext(ctx, a.chunkDelay); err != nil {
				fail(err)
				return
			}
		}

		a.persist(ctx, s, metadata)

		citations := []string{}
		if r, err := report.Render(s.FinalAnswer); err != nil {
			a.logger.Warn("failed to extract citations: %v", err)
		} else {
			citations = r.Citations
		}
		send(newEvent(EventDone, map[string]any{
			"duration_ms":     time.Since(start).Milliseconds(),
			"refined":         s.Attempts > 0,
			"overall_quality": s.Quality.Overall,
			"sources":         toolNamesOf(s.Sources()),
			"citations":       citations,
		}))
	}()

	return ch
}

// chunkRunes splits s into pieces of at most size runes. Pieces are cut at
// byte offsets, so joining them yields s even when s is not valid UTF-8.
func chunkRunes(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}
	var out []string
	start, n := 0, 0
	for i := 0; i < len(s); {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
		if n++; n == size {
			out = append(out, s[start:i])
			start, n = i, 0
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
