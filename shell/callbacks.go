package shell

// CallbackFunc receives a callback's payload: the callback-specific fields
// the protocol machine emitted (decoded packet fields and sender for packet
// callbacks). The payload carries no node snapshot.
type CallbackFunc func(payload map[string]any)

// Callbacks is the set of user-registered handlers: one per well-known
// key and a catch-all default. Packets is carried on the struct but
// dispatch does not consult it, so per-opcode handlers are never invoked.
type Callbacks struct {
	Handlers map[string]CallbackFunc
	Packets  map[uint16]CallbackFunc
	Default  CallbackFunc
}

func (c Callbacks) dispatch(key string, payload map[string]any) CallbackFunc {
	if c.Handlers != nil {
		if fn, ok := c.Handlers[key]; ok {
			return fn
		}
	}
	return c.Default
}
