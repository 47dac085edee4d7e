package sandbox

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// Stringify renders a goja.Value as a JSON-like string. It backs the `str`
// builtin, the [object Object]-avoiding +/template-literal patch installed
// on Object.prototype.toString, and FINAL_VAR's variable resolution.
// Circular references degrade to a fixed placeholder rather than
// recursing forever — the one property this must guarantee, since the
// model fully controls the object graph it feeds in.
func Stringify(v goja.Value, pretty bool) string {
	return stringifyValue(v, pretty, 0, map[*goja.Object]bool{})
}

// StringifyFinal renders v for FINAL/FINAL_VAR resolution: undefined
// renders as "undefined", null as "null", a bound string renders bare
// (not JSON-quoted, unlike str() and the Object.prototype.toString
// patch), and everything else falls back to Stringify's pretty JSON-like
// rendering.
func StringifyFinal(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if s, ok := v.Export().(string); ok {
		return s
	}
	return Stringify(v, true)
}

func stringifyValue(v goja.Value, pretty bool, depth int, seen map[*goja.Object]bool) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if isPrimitive(v) {
		return stringifyPrimitive(v)
	}
	if _, ok := goja.AssertFunction(v); ok {
		return "[Function]"
	}

	obj := v.ToObject(nil)
	if obj == nil {
		return v.String()
	}
	if seen[obj] {
		return "[Circular]"
	}
	seen[obj] = true
	defer delete(seen, obj)

	if obj.ClassName() == "Array" {
		return stringifyArray(obj, pretty, depth, seen)
	}
	return stringifyObject(obj, pretty, depth, seen)
}

func isPrimitive(v goja.Value) bool {
	_, ok := v.(*goja.Object)
	return !ok
}

func stringifyPrimitive(v goja.Value) string {
	switch val := v.Export().(type) {
	case string:
		b, _ := json.Marshal(val)
		return string(b)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return v.String()
	}
}

func stringifyArray(obj *goja.Object, pretty bool, depth int, seen map[*goja.Object]bool) string {
	length := int(obj.Get("length").ToInteger())
	parts := make([]string, 0, length)
	for i := 0; i < length; i++ {
		parts = append(parts, stringifyValue(obj.Get(strconv.Itoa(i)), pretty, depth+1, seen))
	}
	return wrapList(parts, pretty, depth, "[", "]")
}

func stringifyObject(obj *goja.Object, pretty bool, depth int, seen map[*goja.Object]bool) string {
	keys := obj.Keys()
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		keyJSON, _ := json.Marshal(k)
		val := stringifyValue(obj.Get(k), pretty, depth+1, seen)
		sep := ":"
		if pretty {
			sep = ": "
		}
		parts = append(parts, string(keyJSON)+sep+val)
	}
	return wrapList(parts, pretty, depth, "{", "}")
}

func wrapList(parts []string, pretty bool, depth int, open, closeTok string) string {
	if len(parts) == 0 {
		return open + closeTok
	}
	if !pretty {
		return open + strings.Join(parts, ",") + closeTok
	}
	indent := strings.Repeat("  ", depth+1)
	closingIndent := strings.Repeat("  ", depth)
	return open + "\n" + indent + strings.Join(parts, ",\n"+indent) + "\n" + closingIndent + closeTok
}
