// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation (X-API-Key header or api_key query) protecting every route.
//   - rayid: assigns a ray id to each request, exposed in the X-Ray-ID response
//     header and in fiber locals for logger.WithRayID.
package middleware
