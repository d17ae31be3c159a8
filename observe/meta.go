package observe

import "github.com/jonwraymond/memocache/cache"

// FuncMeta describes a wrapped computation for telemetry purposes.
type FuncMeta struct {
	ID      string // Fully qualified identity (scope.name or just name)
	Scope   string // Qualifying scope (may be empty)
	Name    string // Computation name (required)
	Version string // Optional
}

// MetaFor builds FuncMeta from a signature.
func MetaFor(sig *cache.Signature) FuncMeta {
	return FuncMeta{
		ID:    sig.Identity(),
		Scope: sig.Scope(),
		Name:  sig.Name(),
	}
}

// metaForEvent builds FuncMeta from a wrapper event.
func metaForEvent(ev cache.Event) FuncMeta {
	return FuncMeta{ID: ev.Identity, Name: ev.Name}
}

// SpanName returns the deterministic span name for this computation.
// Format: cache.call.<scope>.<name> or cache.call.<name>
func (m FuncMeta) SpanName() string {
	return "cache.call." + m.FuncID()
}

// FuncID returns the fully qualified identity. If ID is set it is returned
// as is; otherwise it is built from scope and name.
func (m FuncMeta) FuncID() string {
	if m.ID != "" {
		return m.ID
	}
	if m.Scope != "" {
		return m.Scope + "." + m.Name
	}
	return m.Name
}

// Validate reports ErrMissingFuncName when Name is empty.
func (m FuncMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingFuncName
	}
	return nil
}
