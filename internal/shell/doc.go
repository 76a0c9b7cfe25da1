// Package shell implements the interactive byn session.
//
// The shell wraps readline with history and tab completion and
// dispatches a small command set against the shared session manager.
// Its defining feature is liveness: the prompt reflects the session
// state at all times. Two observation paths feed it.
//
//   - A session subscription delivers every state transition made by
//     this process, including mid-command expiry. Transitions print a
//     one-line notice above the prompt.
//   - A credential file watcher picks up sign-ins and sign-outs done
//     by other processes against the same store and folds them in
//     through the session manager.
//
// Commands run under their own timeout contexts so shell lifecycle
// events never cancel an in-flight request.
package shell
