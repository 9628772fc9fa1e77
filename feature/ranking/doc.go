// Package ranking recomputes the overall, gender and age-group ranks of an
// event category's finishers.
//
// Every finish triggers a full recomputation. The result is a pure function of
// the current finisher set, so repeated runs write identical ranks. Writes are
// one batched upsert per recomputation, never per-runner updates.
package ranking
