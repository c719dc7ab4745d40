package auth

// ScopeKind tags the capability a caller holds.
type ScopeKind string

const (
	// ScopeAdmin may query any account.
	ScopeAdmin ScopeKind = "admin"
	// ScopeAccountRep may query accounts of clients assigned to the rep.
	ScopeAccountRep ScopeKind = "account-rep"
	// ScopeClient may query accounts the client is bound to.
	ScopeClient ScopeKind = "client"
)

// Scope is an explicit capability object passed into the access guard. It
// replaces string role comparisons scattered through handlers: handlers
// resolve a scope once and every downstream check branches on the tag.
type Scope struct {
	Kind     ScopeKind
	RepID    string
	ClientID string
}

// Admin returns the unrestricted scope.
func Admin() Scope {
	return Scope{Kind: ScopeAdmin}
}

// AccountRep returns a scope restricted to the rep's assigned clients.
func AccountRep(repID string) Scope {
	return Scope{Kind: ScopeAccountRep, RepID: repID}
}

// Client returns a scope restricted to one client's bound accounts.
func Client(clientID string) Scope {
	return Scope{Kind: ScopeClient, ClientID: clientID}
}

// Valid reports whether the scope is well-formed.
func (s Scope) Valid() bool {
	switch s.Kind {
	case ScopeAdmin:
		return true
	case ScopeAccountRep:
		return s.RepID != ""
	case ScopeClient:
		return s.ClientID != ""
	}
	return false
}
