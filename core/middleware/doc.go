// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation, read from the X-API-Key header or the api_key query parameter.
//   - rayid: a unique Request ID (RayID) for every incoming request,
//     stored in the context and echoed in the X-Ray-ID response header.
package middleware
