// Package diag defines the diagnostic model shared by the ABI pipeline stages.
//
// # Purpose
//
//   - Provide deterministic data structures that capture findings produced by
//     the layout resolver, the vtable builder, the enum assigner and the
//     emitters.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Subject – the type or member name the finding is attributed to.
//   - Notes – optional secondary messages, for example the other participant
//     of a name collision.
//
// Stages return typed errors; FromError converts them (including errors
// combined with errors.Join) into Diagnostics so that the pipeline can collect
// them in a Bag per compilation unit.
//
// # Rendering
//
// Format renders a Bag into one line per entry, sorted, optionally colourised
// with github.com/fatih/color. ColorAuto enables colour only when the target
// is a terminal.
package diag
