// Package mapping turns loosely structured provider rows into runners, timing
// merges and checkpoint definitions.
//
// Provider deployments disagree on field names, so every field is read through an
// alias list and, where the aliases miss, through a normalized-key scan. The
// named predicates (LooksLikeAgeGroup, IsNumericLike) decide how ambiguous
// values such as the category column are interpreted.
package mapping
