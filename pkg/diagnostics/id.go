package diagnostics

import "github.com/rs/xid"

// NewDiagnosticID mints a short, sortable, per-occurrence identifier that
// correlates a user-visible error payload with structured logs. Kept
// distinct from reqcontext's request ids (uuid) so the two id spaces never
// collide in logs that carry both.
func NewDiagnosticID() string {
	return xid.New().String()
}
