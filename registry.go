package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// methodHandler is the type-erased entry a MethodRegistry stores per method name: a closure
// that already captured the decode(Parameters)/invoke(handler)/encode(Result) triple for one
// concrete method type M, per the "polymorphic handlers over heterogeneous method types"
// strategy (concrete generic wrappers built at registration time, erased storage).
type methodHandler func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

// MethodRegistry maps a method name to a single type-erased handler. Re-registering a name
// replaces the prior handler.
type MethodRegistry struct {
	mu       sync.RWMutex
	handlers map[string]methodHandler
}

// NewMethodRegistry returns an empty registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{handlers: make(map[string]methodHandler)}
}

func (r *MethodRegistry) set(name string, h methodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *MethodRegistry) lookup(name string) (methodHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// RegisterMethod installs a strongly typed handler for method name under registry reg. The
// stored entry decodes the request's raw params into P, invokes handler, and encodes its R
// result back to raw JSON -- the registry itself stays non-generic; only the wrapper built
// here is specialized to P and R.
func RegisterMethod[P, R any](reg *MethodRegistry, name string, handler func(context.Context, P) (R, error)) {
	reg.set(name, func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var params P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, NewInvalidParams(fmt.Sprintf("%s: %v", name, err))
			}
		}
		result, err := handler(ctx, params)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, NewInternalError(fmt.Sprintf("%s: encoding result: %v", name, err))
		}
		return encoded, nil
	})
}

// notificationHandler is the type-erased per-handler entry a NotificationRegistry stores.
type notificationHandler func(ctx context.Context, params json.RawMessage)

// NotificationRegistry maps a notification name to an ordered, append-only list of type-erased
// handlers, all invoked (best-effort, in registration order) on dispatch.
type NotificationRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]notificationHandler
}

// NewNotificationRegistry returns an empty registry.
func NewNotificationRegistry() *NotificationRegistry {
	return &NotificationRegistry{handlers: make(map[string][]notificationHandler)}
}

func (r *NotificationRegistry) add(name string, h notificationHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = append(r.handlers[name], h)
}

// snapshot returns the current handler slice for name so that a handler registering another
// handler mid-dispatch cannot corrupt the in-flight iteration.
func (r *NotificationRegistry) snapshot(name string) []notificationHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.handlers[name]
	out := make([]notificationHandler, len(hs))
	copy(out, hs)
	return out
}

// RegisterNotification appends a strongly typed handler for notification name under registry
// reg. Multiple handlers for the same name are allowed and all run on every dispatch.
func RegisterNotification[P any](reg *NotificationRegistry, name string, handler func(context.Context, P)) {
	reg.add(name, func(ctx context.Context, raw json.RawMessage) {
		var params P
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &params)
		}
		handler(ctx, params)
	})
}
