// Package ws streams plugin lifecycle events to admin clients over websockets.
package ws
