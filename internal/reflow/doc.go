// Package reflow re-indents a single line of densely packed, comma and
// bracket delimited token data into a multi-line form.
//
// The pass is deliberately narrow. It reads characters once, keeps an indent
// depth and a suppress-next-space flag, and never validates its input:
//
//   - ',' is copied and followed by a line break at the current depth.
//   - '{' and '[' raise the depth, then are copied and followed by a line break.
//   - '}' and ']' lower the depth and are copied with no surrounding whitespace.
//   - A single space right after an inserted break is dropped.
//
// Quoted strings are not recognised, depth may go negative on unbalanced
// input, and the transform is not idempotent: feeding its output back in
// produces different text.
package reflow
