// Package plugin defines the data model of the plugin runtime.
//
// RegistryPlugin entries are read-only snapshots of the remote registry.
// Installed records are the mutable, persisted state; the whole set lives
// in a single State blob in the content store.
//
// Invariants:
//   - at most one theme plugin is enabled at a time
//   - an Installed config only holds keys declared by the plugin schema
//   - resolved config = schema defaults overridden by Installed.Config
package plugin
