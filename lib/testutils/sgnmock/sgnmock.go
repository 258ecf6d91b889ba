// Package sgnmock runs an in-memory rendition of the diary server: the
// login form, the diary page and the partial-ajax endpoint, faithful enough
// for the wire-level packages to test against.
package sgnmock

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// Credentials accepted by the mock.
const (
	Username = "teacher"
	Password = "sekrit"
)

// ViewState is the token the mock hands out and expects back.
const ViewState = "-1234567890:987654321"

const sessionCookie = "JSESSIONID"

// Server is the fake upstream. Configure the page body and the partial
// handler before issuing requests; both have working defaults.
type Server struct {
	*httptest.Server

	// DiaryBody returns the diary page's inner HTML. The view-state
	// input is added around it by the server.
	DiaryBody func() string

	// OnPartial, when set, takes over partial-ajax answering. Return the
	// raw body and status.
	OnPartial func(form url.Values) (string, int)

	mu    sync.Mutex
	posts []url.Values

	expireNext int64
	failNext   int64
}

// New starts a mock diary server and registers its shutdown with t.
func New(t testing.TB) *Server {
	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/login.html", s.handleLogin)
	mux.HandleFunc("/pages/diarioClasse/diario-classe.html", s.handleDiary)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Posts returns a copy of every recorded partial-ajax form.
func (s *Server) Posts() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.posts))
	copy(out, s.posts)
	return out
}

// PostCount returns how many partial-ajax posts were recorded.
func (s *Server) PostCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// ExpireNext makes the next n diary requests answer as an expired session.
func (s *Server) ExpireNext(n int) { atomic.StoreInt64(&s.expireNext, int64(n)) }

// FailNext makes the next n diary requests answer with the 500 error
// redirect.
func (s *Server) FailNext(n int) { atomic.StoreInt64(&s.failNext, int64(n)) }

func (s *Server) handleLogin(rw http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		rw.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(rw, loginPage)
		return
	}
	if err := r.ParseForm(); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostFormValue("username") != Username || r.PostFormValue("password") != Password {
		rw.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(rw, loginPage)
		return
	}
	http.SetCookie(rw, &http.Cookie{Name: sessionCookie, Value: "mock-session", Path: "/"})
	http.Redirect(rw, r, "/pages/diarioClasse/diario-classe.html", http.StatusFound)
}

func (s *Server) handleDiary(rw http.ResponseWriter, r *http.Request) {
	if atomic.AddInt64(&s.expireNext, -1) >= 0 {
		rw.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(rw, expiredPage)
		return
	}
	atomic.AddInt64(&s.expireNext, 1)
	if c, err := r.Cookie(sessionCookie); err != nil || c.Value == "" {
		rw.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(rw, expiredPage)
		return
	}

	if r.Method == http.MethodGet {
		body := defaultDiaryBody
		if s.DiaryBody != nil {
			body = s.DiaryBody()
		}
		rw.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprintf(rw, diaryPageTemplate, body, ViewState)
		return
	}

	if err := r.ParseForm(); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.posts = append(s.posts, r.PostForm)
	s.mu.Unlock()

	if atomic.AddInt64(&s.failNext, -1) >= 0 {
		fmt.Fprint(rw, serverErrorResponse)
		return
	}
	atomic.AddInt64(&s.failNext, 1)

	rw.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	if s.OnPartial != nil {
		body, status := s.OnPartial(r.PostForm)
		rw.WriteHeader(status)
		fmt.Fprint(rw, body)
		return
	}
	fmt.Fprint(rw, DefaultPartialResponse(r.PostForm))
}

// DefaultPartialResponse re-renders the posted value as the selected option
// of the render target, the way the real server confirms a combo change.
func DefaultPartialResponse(form url.Values) string {
	field := form.Get("javax.faces.source")
	render := form.Get("javax.faces.partial.render")
	value := form.Get(field + "_input")
	return fmt.Sprintf(partialTemplate, render, value, value, value, ViewState)
}

// PartialWith builds a partial-response whose update fragment for id holds
// the given HTML.
func PartialWith(id, html string) string {
	return strings.Join([]string{
		`<?xml version='1.0' encoding='UTF-8'?>`,
		`<partial-response><changes>`,
		`<update id="` + id + `"><![CDATA[` + html + `]]></update>`,
		`<update id="j_id1:javax.faces.ViewState:0"><![CDATA[` + ViewState + `]]></update>`,
		`</changes></partial-response>`,
	}, "")
}

const loginPage = `<!DOCTYPE html>
<html><body>
<form id="formLogin" action="/login.html" method="post">
<input type="hidden" name="formLogin" value="formLogin"/>
<input type="text" name="username"/>
<input type="password" name="password"/>
<input type="hidden" name="javax.faces.ViewState" value="` + ViewState + `"/>
</form>
</body></html>`

const expiredPage = `<!DOCTYPE html>
<html><body><h1>Oops! Ocorreu um erro ao carregar essa página</h1></body></html>`

const diaryPageTemplate = `<!DOCTYPE html>
<html><body>
%s
<input type="hidden" name="javax.faces.ViewState" value="%s"/>
</body></html>`

const defaultDiaryBody = `<div id="tabViewDiarioClasse"></div>`

const partialTemplate = `<?xml version='1.0' encoding='UTF-8'?>` +
	`<partial-response><changes>` +
	`<update id="%s"><![CDATA[<select><option value="%s" selected="selected">%s</option></select><!-- %s -->]]></update>` +
	`<update id="j_id1:javax.faces.ViewState:0"><![CDATA[%s]]></update>` +
	`</changes></partial-response>`

const serverErrorResponse = `<?xml version='1.0' encoding='UTF-8'?>` +
	`<partial-response><changes><redirect url="/errors/500.html"></redirect></changes></partial-response>`
