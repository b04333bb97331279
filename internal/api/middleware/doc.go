// Package middleware provides the gin middleware shared by every route:
// CORS for the blog front end and per-IP rate limiting.
package middleware
