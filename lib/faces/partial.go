package faces

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// PartialResponse is the decoded <partial-response> envelope.
type PartialResponse struct {
	Updates  []Update
	Redirect string
}

// Update is one <update id>CDATA</update> fragment.
type Update struct {
	ID      string
	Content string
}

type xmlPartial struct {
	XMLName xml.Name `xml:"partial-response"`
	Updates []struct {
		ID      string `xml:"id,attr"`
		Content string `xml:",chardata"`
	} `xml:"changes>update"`
	Redirect struct {
		URL string `xml:"url,attr"`
	} `xml:"changes>redirect"`
}

// ParsePartial decodes a partial-response body. Bodies that are not
// partial-response XML (full HTML pages, error pages) return an error; the
// caller decides whether that is fatal.
func ParsePartial(body string) (*PartialResponse, error) {
	trimmed := strings.TrimSpace(body)
	if !strings.Contains(trimmed, "<partial-response") {
		return nil, fmt.Errorf("not a partial-response body")
	}
	var raw xmlPartial
	if err := xml.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("decoding partial-response: %w", err)
	}
	pr := &PartialResponse{Redirect: raw.Redirect.URL}
	for _, u := range raw.Updates {
		pr.Updates = append(pr.Updates, Update{ID: u.ID, Content: u.Content})
	}
	return pr, nil
}

// UpdateFor returns the content of the update fragment whose id matches or
// contains want.
func (pr *PartialResponse) UpdateFor(want string) (string, bool) {
	for _, u := range pr.Updates {
		if u.ID == want || strings.Contains(u.ID, want) {
			return u.Content, true
		}
	}
	return "", false
}

// ViewState returns the rotated view-state token when the response carries
// one.
func (pr *PartialResponse) ViewState() (string, bool) {
	for _, u := range pr.Updates {
		if strings.Contains(u.ID, ViewStateParam) {
			return strings.TrimSpace(u.Content), true
		}
	}
	return "", false
}
