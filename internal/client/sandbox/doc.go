// Package sandbox executes plugin code in a goja JavaScript runtime.
//
// The runtime exposes a small page API instead of a browser DOM:
//
//	customElements.define(tag, render)   register a component factory
//	customElements.get(tag)              look up a registered component
//	blog.platform() / blog.content()     read the page context
//	blog.config(id)                      a plugin's resolved configuration
//	blog.emit / blog.on / blog.off       the page event bus
//	blog.publish / blog.capability       share functions between plugins
//	console.*                            forwarded to the logger
//
// Module loaders, process access and timers are removed. Every entry into
// the VM is bounded by the configured timeout. A Runtime belongs to one
// page and must be used from a single goroutine.
package sandbox
