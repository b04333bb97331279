/*
Package installer owns the installed-plugin state machine.

Per plugin id:

	absent -> installed+enabled <-> installed+disabled -> absent

Themes are single-select: enabling a theme activates it and disables every
other theme. The active theme is recorded separately and falls back to a
fixed default id when the active theme is uninstalled.

All state lives in one JSON blob in the content store (plugins/installed.json).
Mutations inside one process are serialized by a mutex. Separate processes
sharing a store race with last-writer-wins semantics.

Components:
  - Manager: lifecycle operations, admin views, the client feed, asset location
  - Seeder: installs plugins listed in a YAML or TOML seed file on first boot
*/
package installer
