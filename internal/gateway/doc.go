// Package gateway implements the authenticated request pipeline for
// the BYN API: bearer attachment, 401 detection, single-flight
// credential refresh, and the one-shot retry that follows a
// successful refresh.
//
// # Request Flow
//
// Every call travels the same path:
//
//	Request ──> attach bearer ──> transport ──> 2xx? done
//	                                  │
//	                                 401
//	                                  │
//	                         refresher.Refresh (shared)
//	                          │               │
//	                       success         failure
//	                          │               │
//	                  retry once, done   store cleared,
//	                                     AuthExpiredError
//
// # Concurrency
//
// Concurrent 401s trigger exactly one refresh exchange; every waiter
// blocks on the same singleflight call and retries with the same
// rotated pair. A caller arriving after the exchange resolved starts
// a new one instead of consuming a stale outcome.
//
// # Terminal Failures
//
// A failed refresh clears both credential slots, so later attempts
// fail fast with ErrNoRefreshCredential before touching the network.
// The registered auth-expired callback lets the session layer move to
// the signed-out state and point the user at sign-in.
//
// # Usage
//
//	client := gateway.New(tr, store, gateway.WithAuthExpired(onExpired))
//
//	var profile api.UserProfile
//	err := client.DoJSON(ctx, http.MethodGet, "/auth/profile/", nil, &profile)
//
// Sign-in, sign-up and sign-out must use the transport directly: for
// those endpoints a 401 means rejected credentials, and routing them
// through the pipeline would misread it as an expired session.
package gateway
