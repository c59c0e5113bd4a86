package loopkit

// Handle is the serialization-boundary view of a Store: state as JSON,
// intake as kind + payload map. The HTTP and MCP adapters consume this view,
// which keeps them free of the application's generic state and event types.
type Handle[S, E any] struct {
	store       *Store[S, E]
	registry    *Registry[E]
	encodeState func(S) ([]byte, error)
}

// Expose wraps a store for adapter consumption. encodeState serializes the
// state for snapshot reads and watch streams (JSONState provides one for
// JSON-friendly states).
func Expose[S, E any](store *Store[S, E], registry *Registry[E], encodeState func(S) ([]byte, error)) *Handle[S, E] {
	return &Handle[S, E]{
		store:       store,
		registry:    registry,
		encodeState: encodeState,
	}
}

// Snapshot returns the latest committed state, serialized.
func (h *Handle[S, E]) Snapshot() ([]byte, error) {
	return h.encodeState(h.store.State())
}

// DispatchKind decodes the payload into the event registered under kind and
// routes it into the loop.
func (h *Handle[S, E]) DispatchKind(kind string, payload map[string]any) error {
	e, err := h.registry.DecodeMap(kind, payload)
	if err != nil {
		return err
	}
	h.store.Dispatch(e)
	return nil
}

// Kinds lists the event kinds this loop accepts.
func (h *Handle[S, E]) Kinds() []string {
	return h.registry.Kinds()
}

// Watch subscribes to the state change stream, serialized. The channel
// closes on cancel or when the store is closed. Encoding failures end the
// stream.
func (h *Handle[S, E]) Watch() (<-chan []byte, func()) {
	changes, cancel := h.store.Changes()
	out := make(chan []byte, 16)

	go func() {
		defer close(out)
		for s := range changes {
			b, err := h.encodeState(s)
			if err != nil {
				cancel()
				return
			}
			select {
			case out <- b:
			default:
				// Reader behind; the next update supersedes this one anyway.
			}
		}
	}()

	return out, cancel
}
