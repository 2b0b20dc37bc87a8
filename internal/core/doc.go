// Package core provides the session layer of the data mapper.
//
// A session is one processor over one loaded dataset. The package loads
// datasets, keeps the live processors, serializes access to each of them
// and persists their configs. It is independent of the transport layer and
// is used by the HTTP handlers and by tests without modification.
//
// # Architecture
//
//   - Catalog: saved queries loaded from a YAML file via [LoadCatalog].
//   - Service: the entry point for opening, transforming and closing
//     sessions, and for the saved config store.
//   - Streaming: BOM skipping, UTF-8 sanitizing and size limiting readers
//     that CSV uploads are parsed through.
//   - LoadLimiter: bounds how many queries load at once.
//
// # Query Catalog
//
// The catalog file lists the queries users can load:
//
//	queries:
//	  - name: monthly_sales
//	    label: Monthly Sales
//	    group: Finance
//	    sql: SELECT region, month, amount FROM sales
//
// # Sessions
//
// [Service.OpenQuerySession] runs a catalog query through pgx and converts
// each cell with [CellFromPg]. [Service.OpenRecordsSession] and
// [Service.OpenCSVSession] start sessions from client data. Every later call
// names the session ID; calls on one session run one at a time. Sessions
// idle longer than the configured TTL are evicted by
// [Service.StartSessionSweeper].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
// Each category has a code prefix for support reference:
//
//   - SES: sessions (not found, too many open)
//   - QRY: catalog queries (unknown, busy, no database)
//   - OP: operations rejected by validation
//   - CFG: saved configs
//   - REQ: request payloads and uploads
//   - DB: database failures
package core
