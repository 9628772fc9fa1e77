package reconcile

import (
	"context"
	"fmt"
	"strings"
)

// ReconcileWithPlan compares spec's remote items against the stored ones and returns
// a plan. It does NOT execute actions; use ApplyPlan for that.
func ReconcileWithPlan(ctx context.Context, spec *Spec, opts Options) (*Plan, error) {
	results, idx, err := Compare(ctx, spec)
	if err != nil {
		return nil, err
	}

	summary, actions := buildPlanFromResults(results, idx, opts)
	return &Plan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// buildPlanFromResults generates a summary and actions from comparison results.
func buildPlanFromResults(results []Result, idx *Index, opts Options) (PlanSummary, []Action) {
	summary := PlanSummary{
		TotalRemote: len(idx.Order) + idx.Duplicates + idx.Unkeyed,
		TotalLocal:  len(idx.Local),
		SkipReasons: map[string]int{},
	}
	var actions []Action

	skip := func(key, reason string) {
		actions = append(actions, Action{Type: ActionSkip, Key: key, Reason: reason})
		summary.Skips++
		summary.SkipReasons[reason]++
	}

	for _, result := range results {
		if !result.RemotePresent {
			// Local-only keys are never removed by a merge
			continue
		}
		remote := idx.Remote[result.Key]

		switch {
		case !result.LocalPresent:
			actions = append(actions, Action{Type: ActionInsert, Key: result.Key, Remote: remote})
			summary.Inserts++
		case !opts.UpdateExisting:
			skip(result.Key, SkipExists)
		case len(result.Mismatch) == 0:
			skip(result.Key, SkipUnchanged)
		default:
			actions = append(actions, Action{
				Type:   ActionUpdate,
				Key:    result.Key,
				Reason: strings.Join(result.Mismatch, "; "),
				Remote: remote,
				Local:  idx.Local[result.Key],
			})
			summary.Updates++
		}
	}

	if idx.Duplicates > 0 {
		summary.Skips += idx.Duplicates
		summary.SkipReasons[SkipDuplicate] += idx.Duplicates
	}
	return summary, actions
}

// ApplyPlan executes the insert and update actions of plan through the adapter's Mutator.
// Batch interfaces are preferred when the adapter implements them.
func ApplyPlan(ctx context.Context, spec *Spec, plan *Plan, opts Options) (ApplyResult, error) {
	var result ApplyResult
	if opts.DryRun {
		return result, nil
	}

	var inserts, updates []Action
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionInsert:
			inserts = append(inserts, action)
		case ActionUpdate:
			updates = append(updates, action)
		}
	}
	if len(inserts) == 0 && len(updates) == 0 {
		return result, nil
	}

	if len(inserts) > 0 {
		if batcher, ok := spec.Adapter.(InsertBatcher); ok {
			n, err := batcher.InsertBatch(ctx, inserts)
			if err != nil {
				return result, fmt.Errorf("failed to batch insert %s: %w", spec.Adapter.Name(), err)
			}
			result.Inserted += n
			result.Conflicts += len(inserts) - n
		} else {
			mutator, err := mutatorOf(spec)
			if err != nil {
				return result, err
			}
			for _, action := range inserts {
				inserted, err := mutator.Insert(ctx, action.Key, action.Remote)
				if err != nil {
					return result, fmt.Errorf("failed to insert %s: %w", action.Key, err)
				}
				if inserted {
					result.Inserted++
				} else {
					result.Conflicts++
				}
			}
		}
	}

	if len(updates) > 0 {
		if batcher, ok := spec.Adapter.(UpdateBatcher); ok {
			if err := batcher.UpdateBatch(ctx, updates); err != nil {
				return result, fmt.Errorf("failed to batch update %s: %w", spec.Adapter.Name(), err)
			}
			result.Updated += len(updates)
		} else {
			mutator, err := mutatorOf(spec)
			if err != nil {
				return result, err
			}
			for _, action := range updates {
				if err := mutator.Update(ctx, action.Key, action.Remote); err != nil {
					return result, fmt.Errorf("failed to update %s: %w", action.Key, err)
				}
				result.Updated++
			}
		}
	}

	return result, nil
}

func mutatorOf(spec *Spec) (Mutator, error) {
	mutator, ok := spec.Adapter.(Mutator)
	if !ok {
		return nil, fmt.Errorf("adapter %s does not implement Mutator interface", spec.Adapter.Name())
	}
	return mutator, nil
}

// ReconcileAndApply plans and applies in one call.
func ReconcileAndApply(ctx context.Context, spec *Spec, opts Options) (*Plan, ApplyResult, error) {
	plan, err := ReconcileWithPlan(ctx, spec, opts)
	if err != nil {
		return nil, ApplyResult{}, err
	}
	result, err := ApplyPlan(ctx, spec, plan, opts)
	return plan, result, err
}
