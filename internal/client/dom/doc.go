// Package dom models the host page the client runtime mounts plugins into.
//
// Document wraps a goquery document. Slots are elements tagged with
// data-plugin-slot; the body slot attaches directly to the document body.
// Every mounted instance sits in its own container element so visibility
// can be toggled without re-rendering.
package dom
