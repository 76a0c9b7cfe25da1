// Package credentials stores the access/refresh pair issued by the
// BYN platform, one durable file per API origin.
//
// The pair always moves as a unit: Set writes both slots through a
// temp-file rename and Clear removes both, so no reader ever sees a
// fresh access token next to a stale refresh token or vice versa.
// Operations do not return errors. When the storage medium is
// unavailable the store keeps the pair in memory for the lifetime of
// the process and logs the degradation, which keeps sign-in usable on
// read-only filesystems.
//
// Reads always consult the file, making the store a shared mailbox
// between processes: a sign-in performed by one invocation is visible
// to the next, and Watcher turns external changes into callbacks for
// long-running sessions.
package credentials
