// Package internal holds helpers shared across greenauth packages that are
// not part of the public API surface.
package internal
