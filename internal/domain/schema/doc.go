// Package schema turns plugin configuration schemas into resolved values
// and style variables.
//
// Resolve performs a right-biased merge of defaults and overrides without
// type checks. Validate is applied on the admin write path only.
package schema
