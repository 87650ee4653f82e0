// Package core ties the catalog engine and the import wizard to storage.
//
// It holds no HTTP or rendering code, so the web layer, tests, or a CLI can
// drive it directly.
//
// # Catalog
//
// [Service.CatalogView] loads a vendor's full product collection from the
// configured [catalog.Source] and runs it through filter, sort and paginate.
// Nothing is pushed down to the source. [Service.BulkUpdateStatus] applies a
// status to the selected products and invalidates any cache in front of the
// source.
//
// # Imports
//
// Each import wizard run is an [importer.Session] registered under a random
// ID and scoped to a vendor. The service forwards wizard actions to the
// session, caps concurrent imports with an [ImportLimiter], and evicts idle
// sessions once SessionTTL passes (see [Service.RunJanitor]).
//
// A column mapping can be saved as a named [importer.Preset]. Later uploads
// are scored against the vendor's presets by header overlap and a match can
// be applied in one step ([Service.MatchPresets], [Service.ApplyPreset]).
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - DB001-DB004: Storage errors (duplicates, connections, timeouts)
//   - VAL001-VAL005: Mapping and selection errors
//   - FILE001-FILE007: File errors (size, format, empty)
//   - IMP001-IMP004: Import session errors (stage, not found, busy)
//   - PRE001-PRE004: Saved mapping errors
//   - REQ001-REQ002: Request cancelled or timed out
//   - RATE001: Too many requests
package core
