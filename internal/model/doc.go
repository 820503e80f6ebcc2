// Package model defines the core data structures used throughout DirtyWaters.
//
// This package contains the following main types:
//   - AttemptRecord: The outcome of one credential trial
//   - AttackReport: The final result of a full run
//   - Verdict: The classifier's reading of one HTTP exchange
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (engine, classify, report, database) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
