// Package gatewayerr implements the typed error taxonomy the gateway core
// surfaces to its callers.
package gatewayerr

import "fmt"

// ConfigurationError indicates a bad startup option. Fatal at startup.
type ConfigurationError struct{ Err error }

func (e *ConfigurationError) Error() string { return fmt.Sprintf("configuration: %v", e.Err) }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProtocolError indicates malformed SDP, JSEP or RTCP. Surfaced as a
// signaling error and/or a drop.
type ProtocolError struct{ Err error }

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol: %v", e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

// ICEError indicates gathering failure, checks failure, or disconnection
// past the grace period. Terminal: runs the hangup path.
type ICEError struct{ Err error }

func (e *ICEError) Error() string { return fmt.Sprintf("ice: %v", e.Err) }
func (e *ICEError) Unwrap() error { return e.Err }

// DTLSError indicates handshake failure, fingerprint mismatch, or an
// alert. Terminal.
type DTLSError struct{ Err error }

func (e *DTLSError) Error() string { return fmt.Sprintf("dtls: %v", e.Err) }
func (e *DTLSError) Unwrap() error { return e.Err }

// SRTPError indicates an unprotect failure burst past the threshold.
// Terminal.
type SRTPError struct{ Err error }

func (e *SRTPError) Error() string { return fmt.Sprintf("srtp: %v", e.Err) }
func (e *SRTPError) Unwrap() error { return e.Err }

// OverflowError indicates a bounded queue was full. Non-fatal, counted;
// the caller evicts oldest-wins.
type OverflowError struct{ Err error }

func (e *OverflowError) Error() string { return fmt.Sprintf("overflow: %v", e.Err) }
func (e *OverflowError) Unwrap() error { return e.Err }

// LifecycleError indicates an operation on a handle that has already
// torn down. Callers treat this as a silent drop, not a log-worthy error.
type LifecycleError struct{ Err error }

func (e *LifecycleError) Error() string { return fmt.Sprintf("lifecycle: %v", e.Err) }
func (e *LifecycleError) Unwrap() error { return e.Err }

// ModuleError indicates an app module failed to load, usually an ABI
// version mismatch. The module is refused.
type ModuleError struct{ Err error }

func (e *ModuleError) Error() string { return fmt.Sprintf("module: %v", e.Err) }
func (e *ModuleError) Unwrap() error { return e.Err }

// AuthError indicates a token was rejected by the auth collaborator.
// The request is refused.
type AuthError struct{ Err error }

func (e *AuthError) Error() string { return fmt.Sprintf("auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }
