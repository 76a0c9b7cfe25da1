// Package cli provides command-line presentation utilities shared by
// every byn command.
//
// It covers three concerns:
//
//   - Error classification: ClassifyConnectionError turns transport
//     failures into categorized, user-facing connection errors, and
//     AuthRequiredError/AuthFailedError carry actionable guidance that
//     the root command maps to semantic exit codes.
//
//   - Output formatting: NewTable and RenderJSON render command
//     results as rounded tables or indented JSON, selected through the
//     --output flag and validated by ValidateOutputFormat.
//
//   - Time rendering: FormatExpiry and TimeAgo present token expiry
//     and post ages the way users expect to read them.
//
// The package contains no HTTP or session logic; commands compose it
// with the session manager and gateway.
package cli
