// Package handlers provides HTTP request handlers for the photo gallery API.
//
// It includes handlers for:
//   - Album listing, search, creation, deletion and view counting
//   - Album preloading and multipart image upload
//   - Variant lookup and serving of variant, placeholder and blob images
//   - Variant cache inspection and clearing
//   - Health checks, version and Prometheus metrics
//
// Errors are returned as {"error": "..."} JSON. Invalid input maps to 400,
// unknown albums and handles to 404, everything else to 500.
package handlers
