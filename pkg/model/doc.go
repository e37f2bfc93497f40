// Package model defines the server-described form schema consumed by the
// session and the renderers. A FormSchema is an ordered list of Sections, each
// an ordered list of Fields; order defines the navigation sequence. Field
// values live in a Values map keyed by field identifier and hold only strings,
// booleans or string lists. Validation feedback lives in an Errors map keyed
// the same way, where an absent key or empty message means "no error".
//
// Schemas are decoded from JSON (the wire format of the schema endpoint) or
// YAML (convenient for local fixtures) and are treated as immutable once
// loaded. FormSchema.Validate enforces the structural invariants the rest of
// the module relies on: unique field identifiers per section, no identifier
// starting with ReservedPrefix, and non-empty option lists for dropdown and
// radio fields. FormSchema.Lint additionally rejects length bounds that cannot
// apply; NormalizeBounds drops them instead.
package model
