package workflow

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Matrix is a job's strategy matrix: named axes crossed into one combination
// per job instance, adjusted by include and exclude lists. Axis declaration
// order is preserved so expansion is deterministic.
type Matrix struct {
	AxisOrder []string
	Axes      map[string][]any
	Include   []map[string]any
	Exclude   []map[string]any
}

// UnmarshalYAML decodes the matrix mapping, keeping axis order and promoting
// scalar axis values to single-element lists.
func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: matrix must be a mapping", node.Line)
	}
	m.Axes = map[string][]any{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "include":
			if err := value.Decode(&m.Include); err != nil {
				return fmt.Errorf("matrix include: %w", err)
			}
		case "exclude":
			if err := value.Decode(&m.Exclude); err != nil {
				return fmt.Errorf("matrix exclude: %w", err)
			}
		default:
			var values []any
			if value.Kind == yaml.SequenceNode {
				if err := value.Decode(&values); err != nil {
					return fmt.Errorf("matrix axis %s: %w", key, err)
				}
			} else {
				var single any
				if err := value.Decode(&single); err != nil {
					return fmt.Errorf("matrix axis %s: %w", key, err)
				}
				values = []any{single}
			}
			m.AxisOrder = append(m.AxisOrder, key)
			m.Axes[key] = values
		}
	}
	return nil
}

// Combination is one expanded matrix entry.
type Combination map[string]any

// Key renders the combination as a stable "k=v, k=v" string for display and
// ordering.
func (c Combination) Key() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, c[k]))
	}
	return strings.Join(parts, ", ")
}

func (c Combination) clone() Combination {
	out := make(Combination, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Expand produces the ordered job combinations: the cross-product of the axes
// in declaration order, minus exclude matches, plus include adjustments.
// Include entries extend every original combination whose shared axis values
// agree; entries that agree with none become standalone combinations, and a
// standalone entry is never itself extended by a later include.
func (m *Matrix) Expand() []Combination {
	if m == nil {
		return nil
	}

	combos := []Combination{{}}
	for _, axis := range m.AxisOrder {
		values := m.Axes[axis]
		if len(values) == 0 {
			continue
		}
		next := make([]Combination, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, value := range values {
				extended := combo.clone()
				extended[axis] = value
				next = append(next, extended)
			}
		}
		combos = next
	}
	if len(m.AxisOrder) == 0 {
		combos = nil
	}

	if len(m.Exclude) > 0 {
		kept := combos[:0]
		for _, combo := range combos {
			if !matchesAny(combo, m.Exclude) {
				kept = append(kept, combo)
			}
		}
		combos = kept
	}

	// Include entries are matched against the original combinations only, so
	// combos appended past this mark stay standalone.
	original := len(combos)
	for _, inc := range m.Include {
		merged := false
		for i := 0; i < original; i++ {
			if agreesOnAxes(combos[i], inc, m.Axes) {
				combos[i] = mergeExtras(combos[i], inc, m.Axes)
				merged = true
			}
		}
		if !merged {
			extra := make(Combination, len(inc))
			for k, v := range inc {
				extra[k] = v
			}
			combos = append(combos, extra)
		}
	}
	return combos
}

// Empty reports whether expansion would produce no combinations.
func (m *Matrix) Empty() bool {
	return m == nil || (len(m.AxisOrder) == 0 && len(m.Include) == 0)
}

func matchesAny(combo Combination, excludes []map[string]any) bool {
	for _, ex := range excludes {
		if len(ex) == 0 {
			continue
		}
		all := true
		for k, v := range ex {
			have, ok := combo[k]
			if !ok || !valuesEqual(have, v) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// agreesOnAxes reports whether every include key that names an original axis
// carries the same value as the combination.
func agreesOnAxes(combo Combination, inc map[string]any, axes map[string][]any) bool {
	for k, v := range inc {
		if _, isAxis := axes[k]; !isAxis {
			continue
		}
		have, ok := combo[k]
		if !ok || !valuesEqual(have, v) {
			return false
		}
	}
	return true
}

// mergeExtras adds include keys to the combination. Original axis values are
// never overwritten; values contributed by earlier include entries are.
func mergeExtras(combo Combination, inc map[string]any, axes map[string][]any) Combination {
	out := combo.clone()
	for k, v := range inc {
		if _, isAxis := axes[k]; isAxis {
			continue
		}
		out[k] = v
	}
	return out
}

func valuesEqual(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
