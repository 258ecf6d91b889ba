// Package discovery finds the diary page's entities: students, assessments,
// recovery activities and the skill rows inside the per-student modal. The
// page's component ids drift between deployments, so every entity is looked
// up through an ordered list of selector strategies.
package discovery

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/faces"
)

// Locator is one named selector strategy.
type Locator struct {
	Name     string
	Selector string
}

// FindFirst runs the strategies in order and returns the first non-empty
// selection. Exhaustion means the entity is absent from the page.
func FindFirst(root *goquery.Selection, entity string, strategies []Locator) (*goquery.Selection, error) {
	for _, loc := range strategies {
		if sel := root.Find(loc.Selector); sel.Length() > 0 {
			return sel, nil
		}
	}
	return nil, &lib.ElementNotFoundError{Entity: entity, Strategies: len(strategies)}
}

// escapeID escapes the JSF colons so an id can be used in a selector.
func escapeID(id string) string {
	out := make([]byte, 0, len(id)+8)
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			out = append(out, '\\')
		}
		out = append(out, id[i])
	}
	return string(out)
}

var studentTableStrategies = []Locator{
	{"exact id", "tbody#" + escapeID(faces.StudentTableBodyID)},
	{"datatable class", "tbody.ui-datatable-data"},
	{"scrollable body", ".ui-datatable-scrollable-body tbody"},
	{"grid role", "table[role='grid'] tbody"},
}

var assessmentTableStrategies = []Locator{
	{"exact id", "tbody#" + escapeID(faces.AssessmentTableBodyID)},
	{"id suffix", "tbody[id$='avaliacoesDataTable_data']"},
}

var recoveryTableStrategies = []Locator{
	{"exact id", "tbody#" + escapeID(faces.RecoveryTableBodyID)},
	{"id suffix", "tbody[id$='recuperacoesParalelas_data']"},
}

var modalSkillTableStrategies = []Locator{
	{"exact id", "tbody#" + escapeID(faces.ModalSkillTableBodyID)},
	{"id suffix", "tbody[id$='tabelaHabilidade_data']"},
}

var attitudeTableStrategies = []Locator{
	{"exact id", "tbody#" + escapeID(faces.AttitudeTableID+"_data")},
	{"id suffix", "tbody[id$='dataTableAtitudes_data']"},
}

var skillGradeTableStrategies = []Locator{
	{"exact id", "tbody#" + escapeID(faces.SkillGradeTableID+"_data")},
	{"id suffix", "tbody[id$='dataTableHabilidades_data']"},
}
