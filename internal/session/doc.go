// Package session tracks who is signed in and exposes every change as
// an observable state transition.
//
// # States
//
//	                Restore (pair valid)
//	 Initializing ──────────────────────────▶ Authenticated
//	      │                                    │        ▲
//	      │ no stored pair,                    │        │
//	      │ stale pair                 Logout, │        │ Login
//	      ▼                            expiry  │        │
//	 Unauthenticated ◀─────────────────────────┘    AuthError
//	      │                                             ▲
//	      └────────── failed Login / Register ──────────┘
//
// StateInitializing lasts from construction until Restore resolves
// the stored credentials one way or the other. StateAuthError is
// entered only by an explicit failed sign-in or sign-up, never by a
// background expiry, so UIs can show the failure next to the form
// that caused it.
//
// # Ownership
//
// The Manager builds and owns the authenticated request pipeline
// (gateway.Client). Consumers obtain it through Gateway and never
// construct their own, which keeps refresh deduplication effective
// process-wide. The pipeline reports terminal credential expiry back
// into the Manager, which transitions to StateUnauthenticated and
// fires the sign-in-required callback exactly once per authenticated
// era no matter how many requests fail concurrently.
//
// # Observation
//
// Subscribe returns a buffered channel receiving a Session snapshot
// after every transition and after in-place profile updates. Sends
// never block; a consumer that stops draining misses intermediate
// snapshots and catches up with the next one.
package session
