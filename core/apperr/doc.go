// Package apperr classifies failures into configuration, not-found, gateway
// and invalid-input errors.
//
// Services return these from their public operations; handlers translate them
// with Status and Public so upstream internals never leak in production.
package apperr
