package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gradepush/gradepush/lib/grading"
	"github.com/gradepush/gradepush/lib/types"
)

// ParseAssessments reads the assessment table filtered to one reporting
// period. Numbering restarts per period, mirroring the AV columns of the
// student table. Skills are attached later from each assessment's modal.
func ParseAssessments(doc *goquery.Document, period types.ReportingPeriod) ([]grading.Assessment, error) {
	table, err := FindFirst(doc.Selection, "assessment table", assessmentTableStrategies)
	if err != nil {
		return nil, err
	}
	var out []grading.Assessment
	table.Find("tr[data-ri]").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 8 {
			return
		}
		rowPeriod := types.ReportingPeriod(strings.TrimSpace(cells.Eq(6).Text()))
		if rowPeriod != period {
			return
		}
		out = append(out, grading.Assessment{
			Row:    rowKey(tr),
			Number: len(out) + 1,
			Date:   strings.TrimSpace(cells.Eq(3).Text()),
			Title:  strings.TrimSpace(cells.Eq(5).Text()),
			Period: rowPeriod,
			Weight: strings.TrimSpace(cells.Eq(7).Text()),
		})
	})
	return out, nil
}

// ParseRecoveries reads the parallel-recovery table for one period. A
// missing table is normal; most classes have no recovery activities.
func ParseRecoveries(doc *goquery.Document, period types.ReportingPeriod) []grading.Recovery {
	table, err := FindFirst(doc.Selection, "recovery table", recoveryTableStrategies)
	if err != nil {
		return nil
	}
	var out []grading.Recovery
	table.Find("tr[data-ri]").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		rowPeriod := types.ReportingPeriod(strings.TrimSpace(cells.Eq(3).Text()))
		if rowPeriod != period {
			return
		}
		out = append(out, grading.Recovery{
			Row:    rowKey(tr),
			Number: len(out) + 1,
			Date:   strings.TrimSpace(cells.Eq(1).Text()),
			Title:  strings.TrimSpace(cells.Eq(2).Text()),
			Period: rowPeriod,
		})
	})
	return out
}

// ParseModalSkills reads the skill table out of an assessment's modal
// fragment.
func ParseModalSkills(doc *goquery.Document) ([]grading.Skill, error) {
	table, err := FindFirst(doc.Selection, "modal skill table", modalSkillTableStrategies)
	if err != nil {
		return nil, err
	}
	var out []grading.Skill
	table.Find("tr[data-ri]").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		text := cellText(cells.Eq(2))
		if text == "" {
			return
		}
		out = append(out, grading.Skill{
			Row:        rowKey(tr),
			Competence: cellText(cells.Eq(1)),
			Text:       text,
		})
	})
	return out, nil
}

// SkillRow is one grade combo inside a student's detail view.
type SkillRow struct {
	Row  int
	Text string
}

// ParseStudentSkillRows reads the grade combo rows of a student's detail
// fragment.
func ParseStudentSkillRows(doc *goquery.Document) ([]SkillRow, error) {
	table, err := FindFirst(doc.Selection, "student skill table", skillGradeTableStrategies)
	if err != nil {
		return nil, err
	}
	var out []SkillRow
	table.Find("tr[data-ri]").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		out = append(out, SkillRow{
			Row:  rowKey(tr),
			Text: cellText(cells.Eq(1)),
		})
	})
	return out, nil
}

// ParseAttitudeRows reads the attitude combo row keys of a student's detail
// fragment.
func ParseAttitudeRows(doc *goquery.Document) ([]int, error) {
	table, err := FindFirst(doc.Selection, "attitude table", attitudeTableStrategies)
	if err != nil {
		return nil, err
	}
	var rows []int
	table.Find("tr[data-ri]").Each(func(_ int, tr *goquery.Selection) {
		rows = append(rows, rowKey(tr))
	})
	return rows, nil
}

// cellText returns a skill cell's description. The table truncates long
// descriptions with an ellipsis and keeps the full text in the span's title
// attribute; the full text is what skill matching needs.
func cellText(cell *goquery.Selection) string {
	if title, ok := cell.Find("span[title]").First().Attr("title"); ok {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(cell.Text())
}

func rowKey(tr *goquery.Selection) int {
	ri, _ := tr.Attr("data-ri")
	n := 0
	for i := 0; i < len(ri); i++ {
		if ri[i] < '0' || ri[i] > '9' {
			return n
		}
		n = n*10 + int(ri[i]-'0')
	}
	return n
}
