package service

// AccessGate decides whether a caller may perform privileged ledger
// operations. It holds the single authorized identity and the pause flag.
//
// The gate carries no lock of its own: LedgerService owns it and serializes
// every access under its own mutex, so the fields are never read and written
// concurrently.
type AccessGate struct {
	authority string
	paused    bool
}

// NewAccessGate creates a gate with the given authority, unpaused.
func NewAccessGate(authority string) *AccessGate {
	return &AccessGate{authority: authority}
}

// Authorize checks whether caller may write to the ledger.
func (g *AccessGate) Authorize(caller string) error {
	if caller != g.authority {
		return ErrUnauthorized
	}
	if g.paused {
		return ErrLedgerPaused
	}
	return nil
}

// RequireAuthority checks caller identity only. Pause and unpause are gated
// on this, not on Authorize: the authority must be able to unpause a paused
// ledger.
func (g *AccessGate) RequireAuthority(caller string) error {
	if caller != g.authority {
		return ErrUnauthorized
	}
	return nil
}

// Authority returns the current authorized identity.
func (g *AccessGate) Authority() string {
	return g.authority
}

// Paused reports whether the ledger is paused.
func (g *AccessGate) Paused() bool {
	return g.paused
}

func (g *AccessGate) setPaused(paused bool) {
	g.paused = paused
}

func (g *AccessGate) setAuthority(authority string) {
	g.authority = authority
}
