package insn

import (
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept around each change.
const diffContext = 2

type diffLine struct {
	op   diffpatch.Operation
	text string
}

// Diff renders a line diff of two instruction bodies with "-" and "+"
// prefixes. Long unchanged runs are elided. The result is empty when the
// bodies print identically. colors may be nil.
func Diff(before, after []Instr, colors *Colors) string {
	from := render(before)
	to := render(after)
	if from == to {
		return ""
	}
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var all []diffLine
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, l := range strings.Split(text, "\n") {
			all = append(all, diffLine{op: d.Type, text: l})
		}
	}

	var out strings.Builder
	for i := 0; i < len(all); {
		if all[i].op != diffpatch.DiffEqual {
			writeDiffLine(&out, all[i], colors)
			i++
			continue
		}
		j := i
		for j < len(all) && all[j].op == diffpatch.DiffEqual {
			j++
		}
		head := diffContext
		if i == 0 {
			head = 0
		}
		tail := diffContext
		if j == len(all) {
			tail = 0
		}
		if j-i <= head+tail {
			for _, l := range all[i:j] {
				writeDiffLine(&out, l, colors)
			}
			i = j
			continue
		}
		for _, l := range all[i : i+head] {
			writeDiffLine(&out, l, colors)
		}
		elided := fmt.Sprintf("@@ %d unchanged @@", j-i-head-tail)
		if colors != nil {
			elided = colors.Elided("%s", elided)
		}
		out.WriteString(elided + "\n")
		for _, l := range all[j-tail : j] {
			writeDiffLine(&out, l, colors)
		}
		i = j
	}
	return out.String()
}

func render(body []Instr) string {
	var b strings.Builder
	for _, i := range body {
		b.WriteString(i.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func writeDiffLine(b *strings.Builder, l diffLine, colors *Colors) {
	var prefix string
	var f func(string, ...any) string
	switch l.op {
	case diffpatch.DiffInsert:
		prefix = "+ "
		if colors != nil {
			f = colors.Added
		}
	case diffpatch.DiffDelete:
		prefix = "- "
		if colors != nil {
			f = colors.Removed
		}
	default:
		prefix = "  "
	}
	line := prefix + l.text
	if f != nil {
		line = f("%s", line)
	}
	b.WriteString(line + "\n")
}
