package loopkit

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Registry maps event kind strings to concrete event types, so adapters
// working at the serialization boundary (HTTP intake, MCP tools, journal
// replay) can decode incoming payloads into the application's event union
// without the engine knowing about either side.
//
// It doubles as the Codec used for journaling: Encode derives the kind via
// the kindOf function supplied at construction and marshals the event as
// JSON; Decode reverses it through the registered constructor.
type Registry[E any] struct {
	kindOf func(E) string

	mu       sync.RWMutex
	fromMap  map[string]func(map[string]any) (E, error)
	fromJSON map[string]func([]byte) (E, error)
}

// NewRegistry creates a registry. kindOf must return a stable kind string
// for every event value the application dispatches (typically a method on
// the event union).
func NewRegistry[E any](kindOf func(E) string) *Registry[E] {
	return &Registry[E]{
		kindOf:   kindOf,
		fromMap:  make(map[string]func(map[string]any) (E, error)),
		fromJSON: make(map[string]func([]byte) (E, error)),
	}
}

// Register binds a kind string to a concrete event type T. wrap converts the
// decoded value into the event union. Registering the same kind twice
// overwrites the previous binding.
func Register[E, T any](r *Registry[E], kind string, wrap func(T) E) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fromMap[kind] = func(payload map[string]any) (E, error) {
		var v T
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:  &v,
			TagName: "json",
		})
		if err != nil {
			var zero E
			return zero, err
		}
		if err := dec.Decode(payload); err != nil {
			var zero E
			return zero, fmt.Errorf("decoding %q payload: %w", kind, err)
		}
		return wrap(v), nil
	}
	r.fromJSON[kind] = func(payload []byte) (E, error) {
		var v T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &v); err != nil {
				var zero E
				return zero, fmt.Errorf("unmarshaling %q payload: %w", kind, err)
			}
		}
		return wrap(v), nil
	}
}

// DecodeMap builds an event from a kind and a loosely typed payload map
// (e.g. a parsed JSON request body).
func (r *Registry[E]) DecodeMap(kind string, payload map[string]any) (E, error) {
	r.mu.RLock()
	fn, ok := r.fromMap[kind]
	r.mu.RUnlock()
	if !ok {
		var zero E
		return zero, fmt.Errorf("unknown event kind %q", kind)
	}
	return fn(payload)
}

// Decode builds an event from a kind and a JSON payload. Part of the Codec
// contract used for journal replay.
func (r *Registry[E]) Decode(kind string, payload []byte) (E, error) {
	r.mu.RLock()
	fn, ok := r.fromJSON[kind]
	r.mu.RUnlock()
	if !ok {
		var zero E
		return zero, fmt.Errorf("unknown event kind %q", kind)
	}
	return fn(payload)
}

// Encode serializes an event for journaling.
func (r *Registry[E]) Encode(e E) (string, []byte, error) {
	kind := r.kindOf(e)
	if kind == "" {
		return "", nil, fmt.Errorf("event %T has no kind", e)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling %q event: %w", kind, err)
	}
	return kind, payload, nil
}

// Kinds lists the registered kinds, sorted.
func (r *Registry[E]) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.fromMap))
	for k := range r.fromMap {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
