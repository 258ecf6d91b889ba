package faces

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Login authenticates against the upstream's credential form and leaves the
// session cookies in the jar. The expiry-marker classification is skipped
// here since the login page itself trips half the markers.
func (c *Client) Login(ctx context.Context, username, password string) error {
	u, err := c.Resolve(LoginPath)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	body, status, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("fetching login page: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("login page answered status %d", status)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing login page: %w", err)
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("input[type='password']").Length() > 0
	}).First()
	if form.Length() == 0 {
		return fmt.Errorf("login page has no credential form")
	}
	action, _ := form.Attr("action")
	if action == "" {
		action = LoginPath
	}

	values := url.Values{}
	form.Find("input[type='hidden']").Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("name"); ok {
			val, _ := s.Attr("value")
			values.Set(name, val)
		}
	})
	userField := firstInputName(form, "input[name='username']", "input[type='text']", "input[type='email']")
	passField := firstInputName(form, "input[type='password']")
	if userField == "" || passField == "" {
		return fmt.Errorf("login form is missing credential fields")
	}
	values.Set(userField, username)
	values.Set(passField, password)

	respBody, status, err := c.PostNavigation(ctx, action, values)
	if err != nil {
		return fmt.Errorf("submitting credentials: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("credential post answered status %d", status)
	}
	if strings.Contains(respBody, "logic:notAuthenticated") || hasPasswordInput(respBody) {
		return fmt.Errorf("authentication rejected for user %s", username)
	}
	c.logger.WithField("user", username).Debug("Authenticated")
	return nil
}

func firstInputName(form *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if name, ok := form.Find(sel).First().Attr("name"); ok && name != "" {
			return name
		}
	}
	return ""
}

// hasPasswordInput detects a re-rendered login form, which is how the
// upstream signals bad credentials.
func hasPasswordInput(body string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return false
	}
	return doc.Find("input[type='password']").Length() > 0
}
