// Package middleware decorates a ports.StateStore. Parked walks carry user queries and
// tool arguments, so deployments can redact or seal them before they reach storage.
package middleware

import "github.com/aretw0/cognito/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
