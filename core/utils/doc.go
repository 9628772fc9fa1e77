// Package utils holds value coercion helpers for loosely typed payloads.
//
// Provider rows arrive as map[string]any decoded from JSON where the same
// field may be a number in one response and a string in the next. ToFloat
// and ToString flatten those variations. Comparable and AlnumKey normalize
// text (Unicode NFKC, case folding) before names and keys are matched.
package utils
