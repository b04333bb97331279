// Package components is the capability registry that maps a component tag
// to the factory rendering it.
//
// Plugins register their fragment under a tag at load time. The loader
// consults the registry to decide whether a plugin's code still needs to be
// fetched and to render instances into page slots.
package components
