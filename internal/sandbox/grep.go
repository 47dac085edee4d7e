package sandbox

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/dop251/goja"
)

// grep filters text line by line against pattern, which may be a plain
// substring or a JS RegExp literal/object. regexp2 (rather than Go's RE2)
// is used so lookaheads/lookbehinds and backreferences in model-authored
// patterns behave the way they would in a real JS engine. Each line is
// matched independently and from scratch, so global/sticky flags never
// leave stateful lastIndex behavior visible across lines or calls.
func grep(text string, pattern goja.Value) ([]string, error) {
	lines := strings.Split(text, "\n")

	matches, err := matchPredicate(pattern)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, line := range lines {
		ok, err := matches(line)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, line)
		}
	}
	return out, nil
}

func matchPredicate(pattern goja.Value) (func(string) (bool, error), error) {
	obj, isObject := pattern.(*goja.Object)
	if isObject && obj.ClassName() == "RegExp" {
		source := obj.Get("source").String()
		flags := obj.Get("flags").String()

		opts := regexp2.ECMAScript
		if strings.Contains(flags, "i") {
			opts |= regexp2.IgnoreCase
		}
		if strings.Contains(flags, "s") {
			opts |= regexp2.Singleline
		}
		if strings.Contains(flags, "m") {
			opts |= regexp2.Multiline
		}
		re, err := regexp2.Compile(source, opts)
		if err != nil {
			return nil, err
		}
		return func(line string) (bool, error) {
			m, err := re.MatchString(line)
			if err != nil {
				return false, err
			}
			return m, nil
		}, nil
	}

	substr := pattern.String()
	return func(line string) (bool, error) {
		return strings.Contains(line, substr), nil
	}, nil
}
