// Package parser extracts structured intent from free-form LLM output: the
// prose preamble ("thinking"), any fenced code to run in the sandbox, and at
// most one FINAL/FINAL_VAR terminator. Parsing is infallible — text that
// matches none of the recognition rules simply yields a ParsedOutput with
// only Raw set.
package parser

import (
	"regexp"
	"strings"
)

// FinalKind distinguishes the two terminator forms a model reply can use to
// end the agent loop.
type FinalKind string

const (
	FinalNone FinalKind = ""
	FinalText FinalKind = "FINAL"
	FinalVar  FinalKind = "FINAL_VAR"
)

// Final carries the resolved terminator, if the reply contained one.
type Final struct {
	Kind FinalKind
	// Value is the literal quoted string for FinalText (escape sequences
	// left untouched) or the bound variable name for FinalVar.
	Value string
}

// ParsedOutput is the ephemeral per-turn result of Parse.
type ParsedOutput struct {
	Raw      string
	Thinking string
	Code     string
	HasCode  bool
	Final    *Final
}

var fencedBlock = regexp.MustCompile("(?s)```(?:javascript|js)?\\s*\\n?(.*?)```")

// finalText matches FINAL("...") / FINAL('...').
var finalText = regexp.MustCompile(`FINAL\(\s*("((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')\s*\)`)

// finalBare matches FINAL(identifier) with no quotes.
var finalBare = regexp.MustCompile(`FINAL\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)`)

// finalVarQuoted matches FINAL_VAR("...") / FINAL_VAR('...').
var finalVarQuoted = regexp.MustCompile(`FINAL_VAR\(\s*("((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')\s*\)`)

// finalVarBare matches FINAL_VAR(identifier) with no quotes.
var finalVarBare = regexp.MustCompile(`FINAL_VAR\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)`)

// Parse extracts a ParsedOutput from a single LLM turn's text.
func Parse(text string) ParsedOutput {
	out := ParsedOutput{Raw: text}

	if loc := fencedBlock.FindStringIndex(text); loc != nil {
		out.Thinking = strings.TrimSpace(text[:loc[0]])
	} else {
		out.Thinking = ""
	}

	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		bodies := make([]string, 0, len(matches))
		for _, m := range matches {
			bodies = append(bodies, strings.Trim(m[1], "\n"))
		}
		out.Code = strings.Join(bodies, "\n")
		out.HasCode = true
	}

	out.Final = extractFinal(text)

	return out
}

// extractFinal scans for the first terminator occurrence among the four
// recognized forms, evaluated left-to-right over the raw text so whichever
// marker appears earliest wins regardless of which pattern it matches.
func extractFinal(text string) *Final {
	type candidate struct {
		index int
		final Final
	}
	var best *candidate

	consider := func(idx int, f Final) {
		if idx < 0 {
			return
		}
		if best == nil || idx < best.index {
			best = &candidate{index: idx, final: f}
		}
	}

	if loc := finalText.FindStringSubmatchIndex(text); loc != nil {
		value := submatchValue(text, loc)
		consider(loc[0], Final{Kind: FinalText, Value: value})
	}
	if loc := finalBare.FindStringSubmatchIndex(text); loc != nil {
		consider(loc[0], Final{Kind: FinalText, Value: text[loc[2]:loc[3]]})
	}
	if loc := finalVarQuoted.FindStringSubmatchIndex(text); loc != nil {
		value := submatchValue(text, loc)
		consider(loc[0], Final{Kind: FinalVar, Value: value})
	}
	if loc := finalVarBare.FindStringSubmatchIndex(text); loc != nil {
		value := text[loc[2]:loc[3]]
		consider(loc[0], Final{Kind: FinalVar, Value: value})
	}

	if best == nil {
		return nil
	}
	return &best.final
}

// submatchValue returns whichever of the double- or single-quoted capture
// groups matched (indices 4:5 and 6:7 in the FindStringSubmatchIndex result).
func submatchValue(text string, loc []int) string {
	if loc[4] != -1 && loc[5] != -1 {
		return text[loc[4]:loc[5]]
	}
	if loc[6] != -1 && loc[7] != -1 {
		return text[loc[6]:loc[7]]
	}
	return ""
}
