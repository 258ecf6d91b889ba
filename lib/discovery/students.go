package discovery

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/faces"
	"github.com/gradepush/gradepush/lib/grading"
)

// Student is one row of the diary's student table. Row is the PrimeFaces
// data-ri correlation key all per-student requests are built from.
type Student struct {
	Row    int
	Name   string
	Scores grading.Scores
}

var scoreColumnRe = regexp.MustCompile(`^(AV\d+|RP\d+|CF|SA|SM)$`)

// ScoreColumns maps the student table's score column labels onto their cell
// indexes.
func ScoreColumns(doc *goquery.Document) map[string]int {
	columns := map[string]int{}
	table, err := FindFirst(doc.Selection, "student table", studentTableStrategies)
	if err != nil {
		return columns
	}
	table.Parent().Find("thead th").Each(func(i int, th *goquery.Selection) {
		label := strings.TrimSpace(th.Text())
		if scoreColumnRe.MatchString(label) {
			columns[label] = i
		}
	})
	return columns
}

// ListStudents returns the class roster in table order. Row indexes are
// walked from zero and the listing stops at the first index with no row;
// the diary never renders a class larger than the cap.
func ListStudents(doc *goquery.Document, columns map[string]int) ([]Student, error) {
	table, err := FindFirst(doc.Selection, "student table", studentTableStrategies)
	if err != nil {
		return nil, err
	}
	byRow := map[int]*goquery.Selection{}
	table.Find("tr[data-ri]").Each(func(_ int, tr *goquery.Selection) {
		if ri, ok := tr.Attr("data-ri"); ok {
			if n, err := strconv.Atoi(ri); err == nil {
				byRow[n] = tr
			}
		}
	})

	var students []Student
	for row := 0; row < lib.MaxStudentsPerClass; row++ {
		tr, ok := byRow[row]
		if !ok {
			break
		}
		name := studentName(tr)
		if !validStudentName(name) {
			continue
		}
		students = append(students, Student{
			Row:    row,
			Name:   name,
			Scores: rowScores(tr, columns),
		})
	}
	return students, nil
}

func studentName(tr *goquery.Selection) string {
	if link := tr.Find("a[id*='" + faces.StudentNameLinkID + "']").First(); link.Length() > 0 {
		if name := strings.TrimSpace(link.Text()); name != "" {
			return name
		}
	}
	cells := tr.Find("td")
	if cells.Length() >= 3 {
		return strings.TrimSpace(cells.Eq(2).Text())
	}
	return ""
}

// validStudentName filters out the filler rows the table pads itself with:
// anything too short, without a surname or carrying markup leftovers.
func validStudentName(name string) bool {
	if len([]rune(name)) < 5 || !strings.Contains(name, " ") {
		return false
	}
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	lower := strings.ToLower(name)
	for _, junk := range []string{"conceito", "http", "www", "javascript", "onclick"} {
		if strings.Contains(lower, junk) {
			return false
		}
	}
	return true
}

func rowScores(tr *goquery.Selection, columns map[string]int) grading.Scores {
	scores := grading.Scores{}
	cells := tr.Find("td")
	for key, idx := range columns {
		if idx < cells.Length() {
			if v := strings.TrimSpace(cells.Eq(idx).Text()); v != "" && v != "-" {
				scores[key] = v
			}
		}
	}
	return scores
}
