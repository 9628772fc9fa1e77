// Package runners exposes read-only runner listings, lookups and status statistics.
package runners
