package canonical

import (
	"fmt"
	"strings"

	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// ApplyDiff replays a commit's delta onto base and returns the patched
// tree. Used by recovery to rebuild a post-state the state store never
// persisted. The inverse of Diff: ApplyDiff(pre, Diff(pre, post))
// canonicalizes to post.
func ApplyDiff(base any, ops []domain.DiffOp) (any, error) {
	tree, err := toTree(base)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		tree, err = applyOp(tree, op)
		if err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// applyOp applies a single operation.
func applyOp(tree any, op domain.DiffOp) (any, error) {
	if op.Path == "" {
		switch op.Op {
		case "add", "replace":
			return toTree(op.Value)
		case "remove":
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: unknown diff op %q", wardenerrors.ErrInvalidValue, op.Op)
		}
	}

	segments := strings.Split(strings.TrimPrefix(op.Path, "/"), "/")
	for i, seg := range segments {
		segments[i] = unescapePointer(seg)
	}
	return patchAt(tree, segments, op)
}

// patchAt descends the map tree along segments and applies op at the leaf.
// Diffs only recurse into objects, so every interior node is a map.
func patchAt(tree any, segments []string, op domain.DiffOp) (any, error) {
	node, ok := tree.(map[string]any)
	if !ok {
		if tree == nil && (op.Op == "add" || op.Op == "replace") {
			node = map[string]any{}
		} else {
			return nil, fmt.Errorf("%w: diff path %q does not traverse an object",
				wardenerrors.ErrInvalidValue, op.Path)
		}
	}

	key := segments[0]
	if len(segments) == 1 {
		switch op.Op {
		case "add", "replace":
			value, err := toTree(op.Value)
			if err != nil {
				return nil, err
			}
			node[key] = value
		case "remove":
			delete(node, key)
		default:
			return nil, fmt.Errorf("%w: unknown diff op %q", wardenerrors.ErrInvalidValue, op.Op)
		}
		return node, nil
	}

	child, err := patchAt(node[key], segments[1:], op)
	if err != nil {
		return nil, err
	}
	node[key] = child
	return node, nil
}

// unescapePointer reverses RFC 6901 escaping: ~1 becomes /, ~0 becomes ~.
func unescapePointer(seg string) string {
	seg = strings.ReplaceAll(seg, "~1", "/")
	return strings.ReplaceAll(seg, "~0", "~")
}
