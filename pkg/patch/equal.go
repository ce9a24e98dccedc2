package patch

import (
	"reflect"
	"slices"
)

// RoutingsEqual reports whether two routing lists are identical, order
// included.
func RoutingsEqual(a, b []ModRouting) bool {
	return slices.Equal(a, b)
}

// EffectEqual reports whether two effect slots have the same type, enabled
// flag, wet mix and params.
func EffectEqual(a, b EffectConfig) bool {
	if a.Type != b.Type || a.Enabled != b.Enabled || a.Wet != b.Wet {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for k, av := range a.Params {
		bv, ok := b.Params[k]
		if !ok || !paramEqual(av, bv) {
			return false
		}
	}
	return true
}

func paramEqual(a, b any) bool {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// EffectsStructureEqual reports whether two chains have the same length and
// the same type and enabled flag at every index. Chains that differ
// structurally need different nodes.
func EffectsStructureEqual(a, b []EffectConfig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Enabled != b[i].Enabled {
			return false
		}
	}
	return true
}
