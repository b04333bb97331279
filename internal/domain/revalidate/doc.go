/*
Package revalidate refreshes the site's page cache after plugin state changes.

Immediate revalidation invalidates the shell, listing pages and every content
page synchronously, then pre-warms those pages in the background within a
fixed time budget. Pre-warm failures are swallowed.

Debounced revalidation only reports its delay. The caller schedules the
follow-up through a Debouncer, which restarts its countdown on every trigger
so a burst of changes produces a single invalidation.
*/
package revalidate
