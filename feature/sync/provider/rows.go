package provider

import (
	"sort"

	"race-timing/core/utils"
)

var preferredKeys = map[string]bool{
	"data":            true,
	"rows":            true,
	"list":            true,
	"items":           true,
	"result":          true,
	"records":         true,
	"eventlist":       true,
	"participantlist": true,
}

// ExtractRows locates the row array of a decoded payload with a breadth-first search.
// An array node is returned as is. For an object, an array under a preferred key
// wins, then any array child, otherwise its object children are searched next.
// Keys are visited in sorted order so the pick is deterministic.
func ExtractRows(parsed any) []any {
	queue := []any{parsed}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		switch node := current.(type) {
		case []any:
			return node
		case map[string]any:
			keys := sortedKeys(node)
			for _, k := range keys {
				if arr, ok := node[k].([]any); ok && preferredKeys[utils.AlnumKey(k)] {
					return arr
				}
			}
			for _, k := range keys {
				if arr, ok := node[k].([]any); ok {
					return arr
				}
			}
			for _, k := range keys {
				if child, ok := node[k].(map[string]any); ok {
					queue = append(queue, child)
				}
			}
		}
	}
	return nil
}

// ObjectRows keeps the object entries of rows.
func ObjectRows(rows []any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// PayloadSample returns the first three rows, else the first twelve entries of
// the data object, else the payload itself.
func PayloadSample(parsed any) any {
	if rows := ExtractRows(parsed); len(rows) > 0 {
		if len(rows) > 3 {
			rows = rows[:3]
		}
		return rows
	}
	if root, ok := parsed.(map[string]any); ok {
		if data, ok := root["data"].(map[string]any); ok {
			sample := make(map[string]any, 12)
			for i, k := range sortedKeys(data) {
				if i == 12 {
					break
				}
				sample[k] = data[k]
			}
			return sample
		}
	}
	return parsed
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
