// Package cutoff marks stalled runners DNF once a checkpoint's cutoff has passed.
//
// Cutoffs are stored as text on checkpoints, either an absolute datetime or a
// bare "HH:MM" meaning today. "-" and empty values disable the cutoff.
//
// When a cutoff passes, every in_progress runner that never recorded a
// checkpoint becomes dnf. The monitor does not compare course order: a runner
// whose latest checkpoint is merely unset is marked even if they are further
// along.
//
// The bulk DNF is scoped to the events of the checkpoint's own campaign, unlike
// a global sweep over every in_progress runner. A cutoff in one race never
// touches runners of another campaign. This scoping is the only narrowing;
// course order is still not consulted.
//
// # HTTP Endpoints
//
//   - POST /cutoffs/check : Runs one check and returns {processed, dnfCount}.
package cutoff
