// Package main runs the client plugin runtime against a rendered page.
//
// It fetches the active-plugin feed from a running server, executes each
// plugin's fragment script, mounts the elements into the page's slots and
// prints the resulting HTML. It is the quickest way to see what a reader's
// browser would end up with.
//
// Usage:
//
//	./pluginrender -server http://localhost:8000 -page post.html -route /blog/hello
//
//	# Simulate a client-side navigation after the first render
//	./pluginrender -page post.html -route /blog/hello -navigate /about
package main
