package coordinator

// AppendListMerge implements the "list append" strategy spec.md §4.G
// calls for when aggregating feature paths: each peer's partial is a
// []string of paths, concatenated in arrival order.
func AppendListMerge(accumulator interface{}, _ string, partial interface{}) interface{} {
	acc, _ := accumulator.([]string)
	items, _ := partial.([]string)
	return append(acc, items...)
}

// HostKeyedMerge implements the "JSON-array append with per-host keys"
// strategy for the non-interactive response form: the accumulator is a
// map from hostname to that host's raw partial payload.
func HostKeyedMerge(accumulator interface{}, hostname string, partial interface{}) interface{} {
	acc, _ := accumulator.(map[string]interface{})
	if acc == nil {
		acc = make(map[string]interface{})
	}
	acc[hostname] = partial
	return acc
}
