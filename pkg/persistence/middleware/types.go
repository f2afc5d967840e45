package middleware

import "github.com/markgewhite/agentic-essay-writer/pkg/ports"

// Middleware wraps a RunStore with additional behaviour (encryption,
// redaction). Middlewares compose: the outermost one sees the plain run.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies middlewares so that the first one listed is outermost.
func Chain(store ports.RunStore, mws ...Middleware) ports.RunStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
