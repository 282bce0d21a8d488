// Package writers persists sample results and debug tables.
//
// Merged CSV rows and JSONL records go through report.Record; JSON uses
// pkg/api (v1) for a stable wire format.
package writers
