package grading

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/types"
)

// Assessment is one row of the diary's assessment table.
type Assessment struct {
	Row    int
	Number int
	Title  string
	Date   string
	Period types.ReportingPeriod
	Weight string
	Skills []Skill
}

// ColumnKey is the student-table column holding this assessment's grades.
func (a Assessment) ColumnKey() string { return fmt.Sprintf("AV%d", a.Number) }

// Recovery is one row of the parallel-recovery table.
type Recovery struct {
	Row    int
	Number int
	Title  string
	Date   string
	Period types.ReportingPeriod
}

// ColumnKey is the student-table column holding this recovery's grades.
func (r Recovery) ColumnKey() string { return fmt.Sprintf("RP%d", r.Number) }

// Skill is one skill row linked to an assessment, as shown in its modal.
type Skill struct {
	Row        int
	Competence string
	Text       string
}

// Mapping ties assessments to their skills and to the recovery activity
// that overrides them. Assessments keep their discovery order; resolution
// walks them first to last.
type Mapping struct {
	Assessments []Assessment

	// recoveryColumn maps an assessment column key onto the recovery
	// column that overrides it, e.g. "AV1" -> "RP1".
	recoveryColumn map[string]string
}

// RecoveryColumnFor returns the recovery column overriding the given
// assessment column, empty when none exists.
func (m *Mapping) RecoveryColumnFor(assessmentKey string) string {
	return m.recoveryColumn[assessmentKey]
}

var recoveryTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)AVALIA[ÇC][ÃA]O\s*(\d+)`),
	regexp.MustCompile(`(?i)\bAV\s*(\d+)`),
}

// InferRecoveryOrigin extracts the assessment number a recovery title refers
// to, 0 when the title gives no hint.
func InferRecoveryOrigin(title string) int {
	for _, re := range recoveryTitlePatterns {
		if m := re.FindStringSubmatch(title); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// BuildMapping validates the collected entities and ties them together. An
// assessment with no linked skills fails the whole build; nothing has been
// submitted at that point, so aborting is free.
func BuildMapping(assessments []Assessment, recoveries []Recovery) (*Mapping, error) {
	if len(assessments) == 0 {
		return nil, &lib.ValidationError{Subject: "assessment table", Reason: "no assessments found for the selected period"}
	}
	byNumber := make(map[int]bool, len(assessments))
	for _, a := range assessments {
		if len(a.Skills) == 0 {
			return nil, &lib.ValidationError{
				Subject: fmt.Sprintf("%s '%s'", a.ColumnKey(), a.Title),
				Reason:  "no skills linked to the assessment",
			}
		}
		byNumber[a.Number] = true
	}

	m := &Mapping{
		Assessments:    assessments,
		recoveryColumn: make(map[string]string, len(recoveries)),
	}
	for _, r := range recoveries {
		origin := InferRecoveryOrigin(r.Title)
		if origin == 0 && byNumber[r.Number] {
			// No title hint; RP numbering mirrors AV numbering.
			origin = r.Number
		}
		if origin == 0 || !byNumber[origin] {
			continue
		}
		key := fmt.Sprintf("AV%d", origin)
		if _, taken := m.recoveryColumn[key]; !taken {
			m.recoveryColumn[key] = r.ColumnKey()
		}
	}
	return m, nil
}
