// Package http exposes the plugin runtime over gin.
//
// Public routes serve the active-plugin feed, inline style variables and the
// asset proxy the browser loads plugin code through. Admin routes drive the
// installation state machine. Domain errors map to status codes in one place
// (respondError) and upstream URLs or credentials never reach a response.
package http
