// Package auth defines the token-authentication contract a gateway
// module consults before creating or operating on a session, grounded
// on the original Janus auth.h: stored-token and signed-token modes,
// plain validity plus a descriptor-scoped validity check.
package auth

import "errors"

// ErrDisabled is a sentinel describing turned-off authentication. No
// Store method returns it (they report plain bools); AlwaysValid is
// the Store that treats every token as valid.
var ErrDisabled = errors.New("auth: authentication disabled")

// Store is the contract an external collaborator implements: stored
// opaque tokens, or signed tokens validated against a secret. The
// gateway core only ever calls these two methods.
type Store interface {
	// IsValid reports whether token is currently valid for realm,
	// whether by stored-token lookup or signature verification.
	IsValid(token, realm string) bool
	// SignatureContains additionally requires a signed token's
	// descriptor set to contain desc (a capability scope). Stores
	// that only support stored-token mode may always return false.
	SignatureContains(token, realm, desc string) bool
}

// AlwaysValid is a Store that accepts every token, for gateways
// running with authentication disabled.
type AlwaysValid struct{}

func (AlwaysValid) IsValid(string, string) bool                { return true }
func (AlwaysValid) SignatureContains(string, string, string) bool { return true }

// StaticTokens is a Store backed by a fixed set of opaque tokens, each
// optionally scoped to a set of descriptors (the plugins/capabilities
// it may use).
type StaticTokens struct {
	tokens map[string]map[string]struct{}
}

// NewStaticTokens builds a Store from token -> allowed-descriptors.
// A token mapped to a nil/empty descriptor set is valid but grants no
// descriptor-scoped capability.
func NewStaticTokens(tokens map[string][]string) *StaticTokens {
	s := &StaticTokens{tokens: make(map[string]map[string]struct{})}
	for token, descs := range tokens {
		set := make(map[string]struct{}, len(descs))
		for _, d := range descs {
			set[d] = struct{}{}
		}
		s.tokens[token] = set
	}
	return s
}

func (s *StaticTokens) IsValid(token, _ string) bool {
	_, ok := s.tokens[token]
	return ok
}

func (s *StaticTokens) SignatureContains(token, _, desc string) bool {
	descs, ok := s.tokens[token]
	if !ok {
		return false
	}
	_, ok = descs[desc]
	return ok
}

// AddToken registers a new valid token with the given descriptors.
func (s *StaticTokens) AddToken(token string, descs ...string) {
	set := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		set[d] = struct{}{}
	}
	s.tokens[token] = set
}

// RemoveToken invalidates token.
func (s *StaticTokens) RemoveToken(token string) {
	delete(s.tokens, token)
}

// Tokens returns every currently valid token, for admin introspection.
func (s *StaticTokens) Tokens() []string {
	out := make([]string, 0, len(s.tokens))
	for t := range s.tokens {
		out = append(out, t)
	}
	return out
}
