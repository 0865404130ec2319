// Package metrics is the observability port for the token subsystem. The
// service layer records through the Recorder interface; wiring decides
// whether that lands in prometheus or nowhere.
package metrics

import "time"

// Validation outcomes recorded per attempt.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeRevoked = "revoked"
	OutcomeError   = "error"
)

// Recorder receives counters and timings from the token pipeline.
type Recorder interface {
	// TokenIssued counts a successful issuance by token type and purpose
	// ("public" or "local").
	TokenIssued(tokenType, purpose string)

	// TokenValidated counts a validation attempt by token type and outcome.
	TokenValidated(tokenType, outcome string)

	// ValidationDuration observes how long one validation took.
	ValidationDuration(tokenType string, d time.Duration)

	// TokenRevoked counts a revocation write by reason.
	TokenRevoked(reason string)

	// RevocationChecked counts a ledger lookup by where it was answered
	// ("cache", "store", "error").
	RevocationChecked(source string)

	// CacheRequest counts a cache lookup by cache name and hit/miss.
	CacheRequest(cache string, hit bool)
}

// Noop discards everything. It is the default when no registry is wired.
type Noop struct{}

func (Noop) TokenIssued(string, string)               {}
func (Noop) TokenValidated(string, string)            {}
func (Noop) ValidationDuration(string, time.Duration) {}
func (Noop) TokenRevoked(string)                      {}
func (Noop) RevocationChecked(string)                 {}
func (Noop) CacheRequest(string, bool)                {}
