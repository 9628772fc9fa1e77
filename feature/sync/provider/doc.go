// Package provider talks to the remote timing provider (RaceTiger).
//
// Every listing is a form POST carrying the partner code, race id and token.
// Payload shapes vary between deployments, so rows are located by probing the
// decoded envelope rather than by a fixed schema (see ExtractRows).
package provider
