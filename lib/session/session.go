// Package session owns the authenticated upstream session: the cookie jar,
// the current view-state token and the diary URL, cached behind a short TTL
// so concurrent submissions never hammer the login flow.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/faces"
)

// Snapshot is what a submission dispatch captures: everything needed to
// build one partial-ajax request. Immutable once handed out.
type Snapshot struct {
	ViewState   string
	DiaryAction string
	DiaryRef    string
	Cookies     []*http.Cookie
	RefreshedAt time.Time
	generation  uint64
}

// Credentials identify the upstream account.
type Credentials struct {
	Username string
	Password string
}

// Manager caches the session snapshot and serialises refreshes. Concurrent
// forced refreshes coalesce into one upstream round trip.
type Manager struct {
	client *faces.Client
	creds  Credentials
	ttl    time.Duration
	logger logrus.FieldLogger

	mx         sync.Mutex
	current    *Snapshot
	classCode  string
	generation uint64
	loggedIn   bool
}

// NewManager returns a Manager bound to client. The zero ttl falls back to
// 30 seconds.
func NewManager(client *faces.Client, creds Credentials, ttl time.Duration, logger logrus.FieldLogger) *Manager {
	if ttl <= 0 {
		ttl = lib.DefaultSessionTTL
	}
	return &Manager{client: client, creds: creds, ttl: ttl, logger: logger}
}

// Client exposes the underlying HTTP client.
func (m *Manager) Client() *faces.Client { return m.client }

// SetCredentials swaps the account the manager authenticates with and drops
// any session built on the old one.
func (m *Manager) SetCredentials(creds Credentials) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.creds = creds
	m.current = nil
	m.loggedIn = false
}

// Authenticated reports whether a login has succeeded in this process.
func (m *Manager) Authenticated() bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.loggedIn
}

// Login authenticates and remembers the credentials worked. It does not
// navigate anywhere yet.
func (m *Manager) Login(ctx context.Context) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.client.Login(ctx, m.creds.Username, m.creds.Password); err != nil {
		return err
	}
	m.loggedIn = true
	return nil
}

// Navigate opens the class diary for classCode and caches the resulting
// snapshot. It must be called after Login and before Acquire.
func (m *Manager) Navigate(ctx context.Context, classCode string) (*Snapshot, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if !m.loggedIn {
		return nil, lib.ErrSessionUnavailable
	}
	m.classCode = classCode
	return m.rebuildLocked(ctx)
}

// Acquire returns a fresh-enough snapshot, rebuilding it when the TTL ran
// out. ErrSessionUnavailable when Login/Navigate never happened.
func (m *Manager) Acquire(ctx context.Context) (*Snapshot, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.current == nil {
		if !m.loggedIn || m.classCode == "" {
			return nil, lib.ErrSessionUnavailable
		}
		return m.rebuildLocked(ctx)
	}
	if time.Since(m.current.RefreshedAt) > m.ttl {
		m.logger.Debug("Session snapshot stale, rebuilding")
		return m.rebuildLocked(ctx)
	}
	return m.current, nil
}

// Refresh forces a rebuild. Callers pass the snapshot that failed them;
// when another goroutine already refreshed past it the cached result is
// returned without a new round trip.
func (m *Manager) Refresh(ctx context.Context, stale *Snapshot) (*Snapshot, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if !m.loggedIn || m.classCode == "" {
		return nil, lib.ErrSessionUnavailable
	}
	if stale != nil && m.current != nil && m.current.generation > stale.generation {
		return m.current, nil
	}
	return m.rebuildLocked(ctx)
}

// Invalidate drops the cached snapshot so the next Acquire rebuilds.
func (m *Manager) Invalidate() {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.current = nil
}

// Close forgets the session and drops idle upstream connections.
func (m *Manager) Close() {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.current = nil
	m.loggedIn = false
	m.classCode = ""
	m.client.CloseIdle()
}

// IsExpired reports whether a response body carries a session-expiry marker.
func (m *Manager) IsExpired(body string) bool {
	return faces.IsExpiredBody(body)
}

// RotateViewState installs the token a mutating response handed back.
func (m *Manager) RotateViewState(token string) {
	if token == "" {
		return
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.current == nil {
		return
	}
	m.generation++
	next := *m.current
	next.ViewState = token
	next.RefreshedAt = time.Now()
	next.generation = m.generation
	m.current = &next
}

// rebuildLocked re-opens the diary page, re-authenticating first when the
// upstream says the session died. Callers hold m.mx.
func (m *Manager) rebuildLocked(ctx context.Context) (*Snapshot, error) {
	snap, err := m.openDiary(ctx)
	if err == nil {
		m.installLocked(snap)
		return snap, nil
	}
	if !lib.IsSessionExpired(err) {
		return nil, err
	}
	m.logger.Info("Session expired upstream, re-authenticating")
	if err := m.client.Login(ctx, m.creds.Username, m.creds.Password); err != nil {
		m.loggedIn = false
		return nil, fmt.Errorf("re-authentication failed: %w", err)
	}
	snap, err = m.openDiary(ctx)
	if err != nil {
		return nil, err
	}
	m.installLocked(snap)
	return snap, nil
}

func (m *Manager) installLocked(snap *Snapshot) {
	m.generation++
	snap.generation = m.generation
	m.current = snap
}

func (m *Manager) openDiary(ctx context.Context) (*Snapshot, error) {
	ref := faces.DiaryPath + "?codigoTurma=" + m.classCode
	doc, _, err := m.client.GetDocument(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("opening class diary: %w", err)
	}
	token, err := faces.ExtractViewState(doc)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ViewState:   token,
		DiaryAction: faces.DiaryPath,
		DiaryRef:    ref,
		Cookies:     m.client.Cookies(),
		RefreshedAt: time.Now(),
	}, nil
}
