// Package core contains the agent storage domain: verifier, token, session,
// and conversation contracts, the service facade, and retention. Storage and
// transport adapters must depend on this package; core must not depend on
// engine-specific or host-specific adapters.
package core
