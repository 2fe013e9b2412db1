// Package dialect holds the emission choices selected once per compilation
// unit: how enumerations are rendered in the header and which naming version
// is used for generated initializer and vtable symbols.
//
// Both are plain values threaded through the emitters; nothing here is
// process-wide state.
package dialect
