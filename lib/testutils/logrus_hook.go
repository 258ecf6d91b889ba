// Package testutils holds the helpers the package tests share: a logrus
// capture hook and the fake diary backend under sgnmock.
package testutils

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimpleLogrusHook implements the logrus.Hook interface and can be used to
// check if log messages were outputted.
type SimpleLogrusHook struct {
	HookedLevels []logrus.Level
	mutex        sync.Mutex
	messageCache []logrus.Entry
}

// NewLogHook creates a new SimpleLogrusHook with the given levels. If no
// levels are specified, logrus.AllLevels is used.
func NewLogHook(levels ...logrus.Level) *SimpleLogrusHook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &SimpleLogrusHook{HookedLevels: levels}
}

// Levels just returns whatever was stored in the HookedLevels slice.
func (h *SimpleLogrusHook) Levels() []logrus.Level {
	return h.HookedLevels
}

// Fire saves whatever message the logrus library passed in the cache.
func (h *SimpleLogrusHook) Fire(e *logrus.Entry) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.messageCache = append(h.messageCache, *e)
	return nil
}

// Drain returns the currently stored messages and deletes them from the
// cache.
func (h *SimpleLogrusHook) Drain() []logrus.Entry {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	res := h.messageCache
	h.messageCache = []logrus.Entry{}
	return res
}

var _ logrus.Hook = &SimpleLogrusHook{}

// LogContains checks the provided log entries for a message matching the
// level and contents.
func LogContains(logEntries []logrus.Entry, expLevel logrus.Level, expContents string) bool {
	for _, entry := range logEntries {
		if entry.Level == expLevel && strings.Contains(entry.Message, expContents) {
			return true
		}
	}
	return false
}
