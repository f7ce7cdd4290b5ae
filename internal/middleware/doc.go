// Package middleware provides HTTP middleware for the photo gallery server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression (gzip) for JSON and text bodies
//   - Prometheus request metrics labelled by gorilla/mux route template
//   - Configurable filtering for image-serving routes and health checks
package middleware
