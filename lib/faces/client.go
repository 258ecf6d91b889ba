package faces

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gradepush/gradepush/lib"
)

// LoginPath is where the upstream serves its credential form.
const LoginPath = "/login.html"

// DiaryPath is the class-diary page all partial posts go against.
const DiaryPath = "/pages/diarioClasse/diario-classe.html"

// Client is an HTTP client bound to one upstream origin. It owns the cookie
// jar, spaces out request starts and classifies the upstream's error
// answers. All methods are safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	timeout    time.Duration
	starts     *rate.Limiter
	logger     logrus.FieldLogger
}

// ClientConfig carries the tunables NewClient needs.
type ClientConfig struct {
	BaseURL         string
	UserAgent       string
	RequestInterval time.Duration
	RequestTimeout  time.Duration
	InsecureSkipTLS bool
}

// NewClient returns a Client with a fresh cookie jar.
func NewClient(conf ClientConfig, logger logrus.FieldLogger) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(conf.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL '%s' needs a scheme and a host", conf.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if conf.InsecureSkipTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	ua := conf.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := conf.RequestTimeout
	if timeout <= 0 {
		timeout = lib.DefaultRequestTimeout
	}
	starts := rate.NewLimiter(rate.Inf, 1)
	if conf.RequestInterval > 0 {
		starts = rate.NewLimiter(rate.Every(conf.RequestInterval), 1)
	}
	return &Client{
		httpClient: &http.Client{Jar: jar, Transport: transport},
		baseURL:    base,
		userAgent:  ua,
		timeout:    timeout,
		starts:     starts,
		logger:     logger,
	}, nil
}

// BaseURL returns the configured upstream origin.
func (c *Client) BaseURL() *url.URL { return c.baseURL }

// Cookies returns the jar's cookies for the upstream origin.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// CloseIdle drops the transport's kept-alive connections.
func (c *Client) CloseIdle() {
	c.httpClient.CloseIdleConnections()
}

// Resolve turns a path or absolute URL into an absolute URL on the upstream
// origin.
func (c *Client) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return c.baseURL.ResolveReference(u), nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (string, int, error) {
	if err := c.starts.Wait(ctx); err != nil {
		return "", 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("url", req.URL.String()).Debug("Request failed")
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"method": req.Method, "url": req.URL.String(),
		"status": resp.StatusCode, "took": time.Since(started),
	}).Trace("Request done")
	return string(body), resp.StatusCode, nil
}

// GetDocument fetches a page and parses it as HTML.
func (c *Client) GetDocument(ctx context.Context, ref string) (*goquery.Document, string, error) {
	u, err := c.Resolve(ref)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	body, status, err := c.do(ctx, req)
	if err != nil {
		return nil, "", err
	}
	if err := classify(body, status); err != nil {
		return nil, body, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, body, fmt.Errorf("parsing page: %w", err)
	}
	return doc, body, nil
}

// PostPartial sends a partial-ajax form against the diary action URL and
// decodes the answer. The raw body is returned alongside so callers can run
// their own marker checks.
func (c *Client) PostPartial(ctx context.Context, action string, form Form) (*PartialResponse, string, error) {
	u, err := c.Resolve(action)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequest(http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", ContentTypeForm)
	req.Header.Set("Accept", AcceptPartialXML)
	req.Header.Set(HeaderRequestedBy, RequestedByXHR)
	req.Header.Set(HeaderFacesReq, FacesReqPartial)
	req.Header.Set("Referer", u.String())

	body, status, err := c.do(ctx, req)
	if err != nil {
		return nil, "", err
	}
	if err := classify(body, status); err != nil {
		return nil, body, err
	}
	pr, err := ParsePartial(body)
	if err != nil {
		return nil, body, err
	}
	return pr, body, nil
}

// PostNavigation sends a regular (non-ajax) urlencoded form, following
// redirects. Used by the login flow.
func (c *Client) PostNavigation(ctx context.Context, action string, values url.Values) (string, int, error) {
	u, err := c.Resolve(action)
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequest(http.MethodPost, u.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, req)
}

// classify maps upstream answers onto the error taxonomy. Expiry wins over
// the generic server error because the 403 redirect matches both shapes.
func classify(body string, status int) error {
	if IsExpiredBody(body) {
		return fmt.Errorf("upstream rejected the request: %w", lib.ErrSessionExpired)
	}
	if IsServerErrorBody(body) {
		return &lib.ServerError{Status: status, Marker: "errors/500.html"}
	}
	if status >= 400 {
		return &lib.ServerError{Status: status}
	}
	return nil
}

// ExtractViewState pulls the hidden view-state token out of a rendered page.
func ExtractViewState(doc *goquery.Document) (string, error) {
	val, ok := doc.Find(`input[name='` + ViewStateParam + `']`).First().Attr("value")
	if !ok || strings.TrimSpace(val) == "" {
		return "", &lib.ElementNotFoundError{Entity: ViewStateParam, Strategies: 1}
	}
	return strings.TrimSpace(val), nil
}
