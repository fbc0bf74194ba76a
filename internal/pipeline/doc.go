// Package pipeline owns the ingestion and assignment run.
//
// Ownership boundary:
// - stage ordering
//
// - hard-error abort before any metadata is written
//
// - consolidated warning report at the end of a run
//
// Stage order:
// - extract -> lock -> key assignment -> match -> flatten -> expand ->
// decide -> persist -> scaffold
//
// Matching runs before flattening because the uploader emails only exist
// in the member upload directory names.
//
// The assignment decision is persisted before any further tree mutation;
// downstream commands read the records and never recompute it.
//
// Pipeline does not own configuration or the roster; both arrive through
// Env from the out-of-scope config layer.
package pipeline
