package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/gradepush/gradepush/lib/faces"
	"github.com/gradepush/gradepush/lib/grading"
	"github.com/gradepush/gradepush/lib/session"
	"github.com/gradepush/gradepush/lib/types"
)

// Collector drives the network side of discovery: it fetches the diary page
// and the partial fragments the per-entity parsers read.
type Collector struct {
	sessions *session.Manager
	logger   logrus.FieldLogger
}

// NewCollector returns a Collector bound to an authenticated session
// manager.
func NewCollector(sessions *session.Manager, logger logrus.FieldLogger) *Collector {
	return &Collector{sessions: sessions, logger: logger}
}

// DiaryPage fetches and parses the full diary page.
func (c *Collector) DiaryPage(ctx context.Context) (*goquery.Document, error) {
	snap, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	doc, _, err := c.sessions.Client().GetDocument(ctx, snap.DiaryRef)
	if err != nil {
		return nil, fmt.Errorf("fetching diary page: %w", err)
	}
	// A page render is also the freshest possible token.
	if token, err := faces.ExtractViewState(doc); err == nil {
		c.sessions.RotateViewState(token)
	}
	return doc, nil
}

// SelectPeriod switches the concepts tab to the requested trimester and
// returns a document for the re-rendered tab. PrimeFaces hides the real
// select, so the submitted value comes from the option whose text matches
// the period.
func (c *Collector) SelectPeriod(ctx context.Context, doc *goquery.Document, period types.ReportingPeriod) (*goquery.Document, error) {
	combo := doc.Find("select[id$='mediasConceito_input']").First()
	if combo.Length() == 0 {
		return nil, fmt.Errorf("period selector not found on the diary page")
	}
	value, selected := "", false
	combo.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(opt.Text()), period.String()) {
			return true
		}
		value, _ = opt.Attr("value")
		_, selected = opt.Attr("selected")
		return false
	})
	if value == "" {
		return nil, fmt.Errorf("period %s is not offered by the diary", period)
	}
	if selected {
		return doc, nil
	}

	snap, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	form := faces.BehaviorUpdate(faces.PeriodComboID, faces.ConceptsFormID, value, snap.ViewState)
	pr, _, err := c.post(ctx, snap.DiaryAction, form)
	if err != nil {
		return nil, fmt.Errorf("selecting period %s: %w", period, err)
	}
	if frag, ok := pr.UpdateFor(faces.ConceptsFormID); ok && strings.TrimSpace(frag) != "" {
		return goquery.NewDocumentFromReader(strings.NewReader(frag))
	}
	// The tab re-rendered outside the partial response; re-read the page.
	return c.DiaryPage(ctx)
}

// CollectAssessments reads the assessment and recovery tables for one
// period and attaches each assessment's linked skills from its modal.
func (c *Collector) CollectAssessments(ctx context.Context, doc *goquery.Document, period types.ReportingPeriod) ([]grading.Assessment, []grading.Recovery, error) {
	assessments, err := ParseAssessments(doc, period)
	if err != nil {
		return nil, nil, err
	}
	for i := range assessments {
		skills, err := c.AssessmentSkills(ctx, assessments[i])
		if err != nil {
			c.logger.WithError(err).WithField("assessment", assessments[i].Title).
				Warn("Could not load the assessment's skill modal")
			continue
		}
		assessments[i].Skills = skills
	}
	return assessments, ParseRecoveries(doc, period), nil
}

// AssessmentSkills opens one assessment's modal and reads its linked
// skills. The modal loads in two round trips: the opening click, then the
// deferred content load.
func (c *Collector) AssessmentSkills(ctx context.Context, a grading.Assessment) ([]grading.Skill, error) {
	snap, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	link := faces.AssessmentLinkID(a.Row)
	open := faces.PanelLoad(link, link, faces.AssessmentModalID, snap.ViewState)
	pr, _, err := c.post(ctx, snap.DiaryAction, open)
	if err != nil {
		return nil, fmt.Errorf("opening assessment modal: %w", err)
	}

	load := faces.PanelLoad(faces.AssessmentModalID, faces.AssessmentModalID, faces.AssessmentModalID, c.token(snap.ViewState, pr))
	load.Set(faces.AssessmentModalID+"_contentLoad", "true")
	pr, _, err = c.post(ctx, snap.DiaryAction, load)
	if err != nil {
		return nil, fmt.Errorf("loading assessment modal content: %w", err)
	}
	frag, ok := pr.UpdateFor(faces.AssessmentModalID)
	if !ok {
		return nil, fmt.Errorf("modal content missing from partial response")
	}
	modalDoc, err := goquery.NewDocumentFromReader(strings.NewReader(frag))
	if err != nil {
		return nil, fmt.Errorf("parsing modal fragment: %w", err)
	}
	return ParseModalSkills(modalDoc)
}

// OpenStudentDetail clicks through to one student's attitude/skill view and
// returns the rendered fragment. The upstream saves combo changes
// immediately, so there is no matching server-side close.
func (c *Collector) OpenStudentDetail(ctx context.Context, s Student) (*goquery.Document, error) {
	snap, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	link := fmt.Sprintf("%s:%d:%s", faces.FinalGradeTableID, s.Row, faces.StudentNameLinkID)
	form := faces.PanelLoad(link, link, faces.AttitudePanelID, snap.ViewState)
	pr, _, err := c.post(ctx, snap.DiaryAction, form)
	if err != nil {
		return nil, fmt.Errorf("opening detail view for %s: %w", s.Name, err)
	}
	frag, ok := pr.UpdateFor(faces.AttitudePanelID)
	if !ok {
		// Some deployments render the whole dialog instead of the panel.
		var all strings.Builder
		for _, u := range pr.Updates {
			if strings.Contains(u.ID, faces.ViewStateParam) {
				continue
			}
			all.WriteString(u.Content)
		}
		frag = all.String()
	}
	if strings.TrimSpace(frag) == "" {
		return nil, fmt.Errorf("empty detail fragment for %s", s.Name)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(frag))
}

func (c *Collector) post(ctx context.Context, action string, form faces.Form) (*faces.PartialResponse, string, error) {
	pr, raw, err := c.sessions.Client().PostPartial(ctx, action, form)
	if err != nil {
		return nil, raw, err
	}
	if token, ok := pr.ViewState(); ok {
		c.sessions.RotateViewState(token)
	}
	return pr, raw, nil
}

// token prefers the rotated view state of the previous response.
func (c *Collector) token(fallback string, pr *faces.PartialResponse) string {
	if t, ok := pr.ViewState(); ok {
		return t
	}
	return fallback
}
