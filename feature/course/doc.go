// Package course loads a campaign's checkpoint course from a YAML definition.
//
// A definition lists the physical checkpoints in course order and, optionally,
// per-event mappings when events of one campaign run different subsets of the
// course. Events without a mapping block get the whole course. Loading replaces
// the campaign's checkpoints and mappings in full.
//
//	checkpoints:
//	  - name: START
//	  - name: CP1
//	    km: 5
//	    cutoff: "07:30"
//	  - name: FINISH
//	    km: 10
//	events:
//	  - event: "10K"
//	    points: [START, CP1, FINISH]
package course
