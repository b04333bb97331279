/*
Package assets mirrors plugin assets from the remote registry into the content
store and serves them to the browser.

Layout under the content store:

	plugins/assets/{id}/manifest.json
	plugins/assets/{id}/{entry}

Caching is best-effort. CacheAssets succeeds as soon as the manifest is stored;
entry files that fail to download are fetched live on every later read.

Proxy is the only browser-reachable path. It validates the requested path
before any store or network access and never exposes upstream credentials.
*/
package assets
