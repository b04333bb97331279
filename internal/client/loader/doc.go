// Package loader is the client runtime that brings active plugins onto a page.
//
// Initialize fetches the active-plugin feed, builds the page context, then
// loads and mounts each plugin in feed order. A plugin that fails to load or
// mount is logged and skipped; the rest of the page still loads. Navigate
// updates the route, re-evaluates route visibility of mounted plugins, and
// emits route-change plus, on content routes, content-ready two frames later.
package loader
