// Package core provides the tabular data engine behind the record browser.
//
// The package holds the record model, upload validation, the in-memory record
// store, and the view query engine. It has no UI or transport dependencies and
// can be used by the web UI, the CLI, or tests without modification.
//
// # Architecture
//
//   - Schemas: Registered via the registry, each [Schema] lists ordered field
//     descriptors, the search set, aggregate fields, and export layout.
//   - RecordStore: Holds the last fetched record set. Refreshes are ordered
//     by ticket so that only the newest request may commit.
//   - QueryEngine: Derives filtered, sorted and aggregated views on demand.
//   - Validation: Checks upload candidates against an [UploadPolicy] before
//     any bytes are sent.
//
// # Schema Registry
//
// Schemas are registered at init time using [Register]:
//
//	core.Register(core.Schema{
//	    Name:        "catalog",
//	    Fields:      []core.FieldDescriptor{{Key: "id", Label: "ID", Kind: core.KindNumber, Sortable: true}},
//	    DefaultSort: "id",
//	    Export:      core.ExportLayout{FileBase: "music_catalog"},
//	})
//
// # Error Codes Reference
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Users can quote the code to support staff for faster diagnosis.
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	FILE002 - Unsupported type: File type is not supported
//	FILE003 - No file: No file was selected
//	NET001  - Connection refused: Unable to reach the server
//	NET002  - Timeout: The server took too long to respond
//	NET003  - Server error: The server failed to process the request (5xx)
//	NET004  - Request rejected: The server rejected the request (4xx)
//	AUTH001 - Session expired: The session is no longer valid (401)
//	EXP001  - Nothing to export: There are no records to export
//	EXP002  - Unknown format: The export format is not supported
//	VIEW001 - Unknown sort field: The column cannot be sorted
//	VIEW002 - Unknown schema: The record schema is not configured
//	RATE001 - Rate limited: Too many requests
//	ERR000  - Unexpected error: check application logs
package core
