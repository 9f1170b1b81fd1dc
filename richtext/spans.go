package richtext

import (
	"bytes"
	"sort"
	"unicode/utf16"
)

// renderSpans writes text with its spans applied. Overlapping spans are closed
// and reopened at segment boundaries so the output is always well nested.
func (r *Renderer) renderSpans(buf *bytes.Buffer, text string, spans []Span) {
	units := utf16.Encode([]rune(text))
	n := len(units)

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > n {
			s.End = n
		}
		if s.Start >= s.End || closeSpan(s) == "" {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		writeText(buf, text)
		return
	}

	// outer spans first: earlier start, then longer range
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	bounds := []int{0, n}
	for _, s := range valid {
		bounds = append(bounds, s.Start, s.End)
	}
	sort.Ints(bounds)
	bounds = dedupe(bounds)

	var stack []int // indexes into valid
	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i], bounds[i+1]

		var active []int
		for idx, s := range valid {
			if s.Start <= from && s.End >= to {
				active = append(active, idx)
			}
		}

		keep := 0
		for keep < len(stack) && keep < len(active) && stack[keep] == active[keep] {
			keep++
		}
		for j := len(stack) - 1; j >= keep; j-- {
			buf.WriteString(closeSpan(valid[stack[j]]))
		}
		stack = stack[:keep]
		for _, idx := range active[keep:] {
			buf.WriteString(r.openSpan(valid[idx]))
			stack = append(stack, idx)
		}

		writeText(buf, string(utf16.Decode(units[from:to])))
	}
	for j := len(stack) - 1; j >= 0; j-- {
		buf.WriteString(closeSpan(valid[stack[j]]))
	}
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
