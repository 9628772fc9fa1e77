// Package sync reconciles campaigns with the RaceTiger timing provider.
//
// A full import reads the info listing into events, race categories and
// checkpoints, pages the bio listing into runners through core/reconcile
// (keyed "eventID|bib", never deleting) and finishes with the score merge.
// The score merge only touches stored runners and never moves a finished,
// dnf or dns runner back to an earlier state.
//
// Every run writes one sync log entry that moves from pending to success or
// error exactly once. Scheduler repeats the score merge for campaigns opted
// into auto sync, skipping ticks while a pass is still running.
package sync
