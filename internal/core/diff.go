package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeChanged ChangeKind = "changed"
)

// Path locates a value inside a record tree as a sequence of map keys and
// slice indices.
type Path []string

func (p Path) String() string {
	if len(p) == 0 {
		return "(root)"
	}
	return strings.Join(p, ".")
}

// ChangeOp is one atomic difference between two record trees. Added ops
// carry only New, Removed ops only Old, Changed ops both.
type ChangeOp struct {
	Kind ChangeKind
	Path Path
	Old  interface{}
	New  interface{}
}

func (op ChangeOp) String() string {
	switch op.Kind {
	case ChangeAdded:
		return fmt.Sprintf("added %s: %s", op.Path, compactJSON(op.New))
	case ChangeRemoved:
		return fmt.Sprintf("removed %s: %s", op.Path, compactJSON(op.Old))
	default:
		return fmt.Sprintf("changed %s: %s -> %s", op.Path, compactJSON(op.Old), compactJSON(op.New))
	}
}

func compactJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Diff computes the ordered change operations turning old into new. Both
// arguments are decoded-JSON trees; a nil old tree is the first-poll
// sentinel, making every field of new an addition. The output is
// deterministic (map keys visited in sorted order) and not commutative:
// swapping the arguments swaps Added and Removed.
func Diff(old, new map[string]interface{}) []ChangeOp {
	if old == nil {
		old = map[string]interface{}{}
	}
	if new == nil {
		new = map[string]interface{}{}
	}
	return diffMaps(nil, old, new)
}

func diffMaps(path Path, old, new map[string]interface{}) []ChangeOp {
	var ops []ChangeOp

	keys := make([]string, 0, len(old)+len(new))
	seen := make(map[string]bool, len(old)+len(new))
	for k := range old {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range new {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := append(append(Path{}, path...), k)
		oldVal, inOld := old[k]
		newVal, inNew := new[k]

		switch {
		case !inOld:
			// The whole subtree is new; report it as one op.
			ops = append(ops, ChangeOp{Kind: ChangeAdded, Path: childPath, New: newVal})
		case !inNew:
			ops = append(ops, ChangeOp{Kind: ChangeRemoved, Path: childPath, Old: oldVal})
		default:
			ops = append(ops, diffValues(childPath, oldVal, newVal)...)
		}
	}

	return ops
}

func diffValues(path Path, old, new interface{}) []ChangeOp {
	oldMap, oldIsMap := old.(map[string]interface{})
	newMap, newIsMap := new.(map[string]interface{})
	if oldIsMap && newIsMap {
		return diffMaps(path, oldMap, newMap)
	}

	oldList, oldIsList := old.([]interface{})
	newList, newIsList := new.([]interface{})
	if oldIsList && newIsList {
		return diffLists(path, oldList, newList)
	}

	if !reflect.DeepEqual(old, new) {
		return []ChangeOp{{Kind: ChangeChanged, Path: path, Old: old, New: new}}
	}
	return nil
}

// diffLists compares shared indices positionally and reports the tail of
// the longer side as whole-value additions or removals.
func diffLists(path Path, old, new []interface{}) []ChangeOp {
	var ops []ChangeOp

	shared := len(old)
	if len(new) < shared {
		shared = len(new)
	}

	for i := 0; i < shared; i++ {
		childPath := append(append(Path{}, path...), strconv.Itoa(i))
		ops = append(ops, diffValues(childPath, old[i], new[i])...)
	}
	for i := shared; i < len(new); i++ {
		childPath := append(append(Path{}, path...), strconv.Itoa(i))
		ops = append(ops, ChangeOp{Kind: ChangeAdded, Path: childPath, New: new[i]})
	}
	for i := shared; i < len(old); i++ {
		childPath := append(append(Path{}, path...), strconv.Itoa(i))
		ops = append(ops, ChangeOp{Kind: ChangeRemoved, Path: childPath, Old: old[i]})
	}

	return ops
}
