// Package sliceutil provides generic slice manipulation utilities.
package sliceutil

// Deduplicate removes duplicate items from a slice while preserving order.
// The keyFunc extracts a unique key from each item for comparison.
// Only the first occurrence of each key is kept.
//
// Example:
//
//	intents := []storage.Intent{{ID: "a"}, {ID: "b"}, {ID: "a"}}
//	unique := sliceutil.Deduplicate(intents, func(i storage.Intent) string { return i.ID })
//	// Result: [{ID: "a"}, {ID: "b"}]
func Deduplicate[T any, K comparable](items []T, keyFunc func(T) K) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[K]struct{}, len(items))
	result := make([]T, 0, len(items))

	for _, item := range items {
		key := keyFunc(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}

	return result
}

// GroupBy buckets items by key. The returned keys are in first-seen order and
// each bucket keeps the input order of its items.
func GroupBy[T any, K comparable](items []T, keyFunc func(T) K) ([]K, map[K][]T) {
	keys := make([]K, 0)
	groups := make(map[K][]T)
	for _, item := range items {
		key := keyFunc(item)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], item)
	}
	return keys, groups
}
