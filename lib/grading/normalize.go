// Package grading maps the diary's assessments, recovery activities and
// skills onto the grade each skill combo should receive. Everything in here
// is pure; nothing talks to the network.
package grading

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gradepush/gradepush/lib/types"
)

// accent folding: decompose, drop combining marks, recompose. The diary
// renders the same skill with and without accents depending on the screen.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds s for comparison: accents stripped, lower-cased,
// whitespace collapsed.
func Normalize(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// SkillMatches reports whether two skill descriptions refer to the same
// skill: normalized-equal after stripping leading '*' decoration. One skill
// text prefixing another is not a match; discovery reads the full text from
// the title attribute, so truncated renditions never reach this comparison.
func SkillMatches(a, b string) bool {
	na := Normalize(strings.TrimLeft(a, "* "))
	nb := Normalize(strings.TrimLeft(b, "* "))
	if na == "" {
		return false
	}
	return na == nb
}

// gradeAliases maps folded display values onto canonical grades. "Não se
// aplica" and "Não entregue" are how the table renders NE.
var gradeAliases = map[string]types.Grade{
	"a":             types.GradeA,
	"b":             types.GradeB,
	"c":             types.GradeC,
	"ne":            types.GradeNotGiven,
	"nao se aplica": types.GradeNotGiven,
	"nao entregue":  types.GradeNotGiven,
}

// NormalizeGrade maps a raw display value onto a canonical grade,
// case- and accent-insensitively. Empty or unrecognized values return def.
func NormalizeGrade(raw string, def types.Grade) types.Grade {
	if g, ok := gradeAliases[Normalize(raw)]; ok {
		return g
	}
	return def
}
