// Package pipeline types assemblies: normalize, Stage-1 scoring, the
// optional Stage-2 diagnostic-site check, and the final call.
//
// The only contracts to implement are Aligner and faidx.Extractor.
// This keeps the pipeline swappable and testable.
package pipeline
