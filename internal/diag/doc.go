// Package diag carries diagnostics from every phase.
//
// A Diagnostic has a Code whose ID() is a stable string such as
// "Enum-Disc-Dup" or "E-SEM-2850". Tests and external tools match on these
// ids; the human text comes from a Messages table and may change freely.
//
// Phases report through Reporter (usually BagReporter into a Bag) or through
// ReportBuilder when notes are attached.
package diag
