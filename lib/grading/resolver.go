package grading

import (
	"github.com/gradepush/gradepush/lib/types"
)

// Scores holds one student's recorded grades keyed by column ("AV1", "RP2").
// Values are raw display strings; resolution normalizes them.
type Scores map[string]string

// Resolver decides the grade one skill combo should receive for one
// student.
type Resolver interface {
	Resolve(skillText string, scores Scores) types.Grade
}

// ConstantResolver gives every skill the same grade, the fast path when no
// score-driven resolution was requested.
type ConstantResolver struct {
	Grade types.Grade
}

// Resolve implements Resolver.
func (r ConstantResolver) Resolve(string, Scores) types.Grade { return r.Grade }

// TableResolver resolves each skill from the student's recorded scores: the
// first assessment linked to the skill that has a usable score wins, and a
// recovery score always overrides the assessment's own.
type TableResolver struct {
	Mapping *Mapping
	Default types.Grade

	// The upstream only accepts C together with a registered learning
	// recomposition; without KeepC a resolved C is written as NE.
	KeepC bool
}

// Resolve implements Resolver.
func (r TableResolver) Resolve(skillText string, scores Scores) types.Grade {
	for _, a := range r.Mapping.Assessments {
		if !linksSkill(a, skillText) {
			continue
		}
		raw := ""
		if rp := r.Mapping.RecoveryColumnFor(a.ColumnKey()); rp != "" {
			raw = scores[rp]
		}
		if raw == "" {
			raw = scores[a.ColumnKey()]
		}
		if raw == "" {
			// Linked but ungraded; a later assessment may still carry
			// a score for this skill.
			continue
		}
		grade := NormalizeGrade(raw, r.Default)
		if grade == types.GradeC && !r.KeepC {
			grade = types.GradeNotGiven
		}
		return grade
	}
	return r.Default
}

func linksSkill(a Assessment, skillText string) bool {
	for _, s := range a.Skills {
		if SkillMatches(s.Text, skillText) {
			return true
		}
	}
	return false
}

// gradeRank orders grades for the mode tie-break, worst first.
var gradeRank = map[types.Grade]int{
	types.GradeNotGiven: 1,
	types.GradeC:        2,
	types.GradeB:        3,
	types.GradeA:        4,
}

// ModeGrade returns the most frequent grade of a student, rounding down on
// ties. The exact three-way A/B/C tie lands on B. Used to fill the final
// grade combo.
func ModeGrade(grades []types.Grade) (types.Grade, bool) {
	if len(grades) == 0 {
		return "", false
	}
	counts := make(map[types.Grade]int, 4)
	for _, g := range grades {
		counts[g]++
	}
	if len(counts) == 3 && counts[types.GradeA] > 0 && counts[types.GradeA] == counts[types.GradeB] && counts[types.GradeB] == counts[types.GradeC] {
		return types.GradeB, true
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	mode := types.Grade("")
	for g, n := range counts {
		if n != max {
			continue
		}
		if mode == "" || gradeRank[g] < gradeRank[mode] {
			mode = g
		}
	}
	return mode, true
}
