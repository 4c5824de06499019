// Package threads snapshots the live thread set of a target process.
//
// A snapshot is consistent only at the moment of capture: a returned thread
// id may already name an exited thread by the time it is opened. Callers
// must treat per-thread failures as expected.
package threads
