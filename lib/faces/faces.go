// Package faces speaks the JSF/PrimeFaces partial-ajax wire protocol of the
// diary server: urlencoded POST bodies keyed by javax.faces.* parameters,
// answered with partial-response XML carrying CDATA HTML fragments.
package faces

import (
	"net/url"
	"strings"
)

// Request header values the upstream expects on every partial-ajax POST.
const (
	ContentTypeForm   = "application/x-www-form-urlencoded; charset=UTF-8"
	AcceptPartialXML  = "application/xml, text/xml, */*; q=0.01"
	HeaderFacesReq    = "Faces-Request"
	FacesReqPartial   = "partial/ajax"
	HeaderRequestedBy = "X-Requested-With"
	RequestedByXHR    = "XMLHttpRequest"

	// The upstream fingerprints the agent; an empty or Go default UA gets
	// served the error page.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ViewStateParam is the hidden field carrying the server-side view token.
const ViewStateParam = "javax.faces.ViewState"

// Form is an ordered list of body parameters. The upstream's JSF stack is
// order-sensitive in places, so unlike url.Values the encoding preserves
// insertion order.
type Form []pair

type pair struct{ key, value string }

// Set appends a parameter.
func (f *Form) Set(key, value string) {
	*f = append(*f, pair{key, value})
}

// Get returns the first value for key, empty when absent.
func (f Form) Get(key string) string {
	for _, p := range f {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Encode serialises the form as an application/x-www-form-urlencoded body.
func (f Form) Encode() string {
	var b strings.Builder
	for i, p := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// BehaviorUpdate builds the body for a valueChange submission of a single
// combo field. renderID is usually the field itself; grade combos re-render
// their whole panel instead.
func BehaviorUpdate(fieldID, renderID, value, viewState string) Form {
	var f Form
	f.Set("javax.faces.partial.ajax", "true")
	f.Set("javax.faces.source", fieldID)
	f.Set("javax.faces.partial.execute", fieldID)
	f.Set("javax.faces.partial.render", renderID)
	f.Set("javax.faces.behavior.event", "valueChange")
	f.Set("javax.faces.partial.event", "change")
	f.Set(fieldID+"_focus", "")
	f.Set(fieldID+"_input", value)
	f.Set(ViewStateParam, viewState)
	return f
}

// PanelLoad builds the body for a non-behavior partial post: tab switches,
// panel loads and modal opens.
func PanelLoad(sourceID, executeID, renderID, viewState string) Form {
	var f Form
	f.Set("javax.faces.partial.ajax", "true")
	f.Set("javax.faces.source", sourceID)
	f.Set("javax.faces.partial.execute", executeID)
	f.Set("javax.faces.partial.render", renderID)
	f.Set(sourceID, sourceID)
	f.Set(ViewStateParam, viewState)
	return f
}
