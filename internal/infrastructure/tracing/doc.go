// Package tracing propagates request ids through gin and context.Context.
//
// Each inbound request gets an X-Request-ID (reusing a well-formed one sent
// by the caller) which is echoed on the response, stored on the request
// context and attached to access log lines.
//
// Usage:
//
//	router.Use(tracing.Middleware())
//	router.Use(tracing.AccessLog(logger))
//
//	func handler(c *gin.Context) {
//		id := tracing.RequestID(c.Request.Context())
//	}
package tracing
