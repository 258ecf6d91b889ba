package faces

import "strings"

// expiryMarkers are the substrings the upstream uses to announce a dead
// session. The Oops page is what an expired JSESSIONID renders; the rest
// cover partial-response redirects and the occasional English variant.
var expiryMarkers = []string{
	"oops! ocorreu um erro ao carregar essa página",
	"logic:notauthenticated",
	"login.html",
	"autenticacao",
	"session expired",
	"sessão expirou",
	`redirect url="/login.html"`,
	`redirect url="/errors/403.html"`,
}

const serverErrorMarker = `redirect url="/errors/500.html"`

// IsExpiredBody reports whether body carries any session-expiry marker.
// Matching is case-insensitive because the error pages are not consistent
// about casing.
func IsExpiredBody(body string) bool {
	lower := strings.ToLower(body)
	for _, m := range expiryMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsServerErrorBody reports whether body redirects to the 500 error page.
func IsServerErrorBody(body string) bool {
	return strings.Contains(strings.ToLower(body), serverErrorMarker)
}

// ConfirmsValue reports whether a partial-response body confirms that a
// submitted combo now holds value: the re-rendered fragment must show it as
// the selected option.
func ConfirmsValue(body, value string) bool {
	return strings.Contains(body, "update id=") &&
		strings.Contains(body, `selected="selected"`) &&
		strings.Contains(body, value)
}
