// Package thalamus implements the rule-based router that decides
// which handlers receive each signal emitted on the bus.
package thalamus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/openclaw/openclaw/internal/signals"
)

// Route is a single routing rule, evaluated in declared order.
type Route struct {
	ID       string
	Match    Matcher
	Dispatch []string
	Terminal bool
	Disabled bool
}

// HandlerError pairs a handler id with the error it returned.
type HandlerError struct {
	HandlerID string
	Err       error
}

// Result is returned by Router.Route.
type Result struct {
	MatchedRoutes []string
	DispatchedTo  []string
	Errors        []HandlerError
}

// Handler is a signal consumer registered under an id in the router's
// handler registry.
type Handler func(signals.Signal) error

// Router matches signals against an ordered list of routes and
// dispatches to the union of their handler sets.
type Router struct {
	mu              sync.RWMutex
	routes          []Route
	handlers        map[string]Handler
	defaultDispatch []string
	logger          *slog.Logger
}

// New creates a Router with the given routes, evaluated in the order
// given. Pass a logger for route/dispatch diagnostics; a nil logger
// discards them.
func New(routes []Route, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		routes:   append([]Route(nil), routes...),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// RegisterHandler adds or replaces a handler under id.
func (r *Router) RegisterHandler(id string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

// SetDefaultDispatch sets the handler ids used when no route matches.
func (r *Router) SetDefaultDispatch(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultDispatch = append([]string(nil), ids...)
}

// Route evaluates every enabled route against s in declared order,
// stopping after the first matching terminal route, then dispatches to
// the deduplicated union of dispatch sets from all matched routes
// (or defaultDispatch if nothing matched). Handlers run concurrently;
// Route blocks until every invoked handler has returned.
func (r *Router) Route(s signals.Signal) Result {
	r.mu.RLock()
	routes := r.routes
	handlers := r.handlers
	defaultDispatch := r.defaultDispatch
	r.mu.RUnlock()

	var matched []string
	var dispatchIDs []string
	seen := make(map[string]bool)

	for _, route := range routes {
		if route.Disabled {
			continue
		}
		if !route.Match.matches(s) {
			continue
		}
		matched = append(matched, route.ID)
		for _, id := range route.Dispatch {
			if !seen[id] {
				seen[id] = true
				dispatchIDs = append(dispatchIDs, id)
			}
		}
		if route.Terminal {
			break
		}
	}

	if len(matched) == 0 {
		for _, id := range defaultDispatch {
			if !seen[id] {
				seen[id] = true
				dispatchIDs = append(dispatchIDs, id)
			}
		}
	}

	var dispatchedTo []string
	var runnable []string
	for _, id := range dispatchIDs {
		if _, ok := handlers[id]; ok {
			dispatchedTo = append(dispatchedTo, id)
			runnable = append(runnable, id)
		} else {
			r.logger.Debug("thalamus: dropping unknown handler id", "handler_id", id, "signal_type", s.Type)
		}
	}

	errs := r.dispatch(s, handlers, runnable)

	return Result{MatchedRoutes: matched, DispatchedTo: dispatchedTo, Errors: errs}
}

func (r *Router) dispatch(s signals.Signal, handlers map[string]Handler, ids []string) []HandlerError {
	if len(ids) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []HandlerError

	for _, id := range ids {
		wg.Add(1)
		go func(id string, h Handler) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					errs = append(errs, HandlerError{HandlerID: id, Err: fmt.Errorf("%v", rec)})
					mu.Unlock()
				}
			}()
			if err := h(s); err != nil {
				mu.Lock()
				errs = append(errs, HandlerError{HandlerID: id, Err: err})
				mu.Unlock()
			}
		}(id, handlers[id])
	}

	wg.Wait()
	return errs
}
