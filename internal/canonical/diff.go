package canonical

import (
	"sort"
	"strings"

	"github.com/mrz1836/warden/internal/domain"
)

// Diff computes the JSON Patch-style delta from pre to post. Both values are
// first reduced to their canonical trees, so the result is deterministic.
// An unchanged pair yields an empty (non-nil) slice.
func Diff(pre, post any) ([]domain.DiffOp, error) {
	preTree, err := toTree(pre)
	if err != nil {
		return nil, err
	}
	postTree, err := toTree(post)
	if err != nil {
		return nil, err
	}
	ops := make([]domain.DiffOp, 0, 4)
	diffValue(&ops, "", preTree, postTree)
	return ops, nil
}

// diffValue appends operations describing the change from pre to post at path.
func diffValue(ops *[]domain.DiffOp, path string, pre, post any) {
	if treesEqual(pre, post) {
		return
	}

	preMap, preIsMap := pre.(map[string]any)
	postMap, postIsMap := post.(map[string]any)
	if preIsMap && postIsMap {
		keys := make(map[string]struct{}, len(preMap)+len(postMap))
		for k := range preMap {
			keys[k] = struct{}{}
		}
		for k := range postMap {
			keys[k] = struct{}{}
		}
		sorted := make([]string, 0, len(keys))
		for k := range keys {
			sorted = append(sorted, k)
		}
		sort.Strings(sorted)
		for _, k := range sorted {
			child := path + "/" + escapePointer(k)
			pv, inPre := preMap[k]
			nv, inPost := postMap[k]
			switch {
			case inPre && inPost:
				diffValue(ops, child, pv, nv)
			case inPre:
				*ops = append(*ops, domain.DiffOp{Op: "remove", Path: child, From: pv})
			default:
				*ops = append(*ops, domain.DiffOp{Op: "add", Path: child, Value: nv})
			}
		}
		return
	}

	// Arrays and scalars are replaced wholesale.
	*ops = append(*ops, domain.DiffOp{Op: "replace", Path: path, From: pre, Value: post})
}

// treesEqual compares two canonical trees by canonical byte encoding.
func treesEqual(a, b any) bool {
	ab, errA := Marshal(a)
	bb, errB := Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// escapePointer escapes a key per RFC 6901: ~ becomes ~0, / becomes ~1.
func escapePointer(k string) string {
	k = strings.ReplaceAll(k, "~", "~0")
	return strings.ReplaceAll(k, "/", "~1")
}
