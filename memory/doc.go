// Package memory defines conversation history for the marketing advisor.
//
// A Store persists messages per session. Backends live under store/ (memory,
// redis, postgres, sqlite). The Adapter wraps a Store with the policy the
// workflow needs: bounded history reads that never fail the run, and turn
// persistence that writes the user query and the assistant answer together.
//
//	st := memstore.New()
//	mem := memory.NewAdapter(st, memory.WithHistoryLimit(20))
//
//	history := mem.History(ctx, "session-1")
//	err := mem.AppendTurn(ctx, "session-1", query, answer, nil)
package memory
