// Package service contains the client-side stores: the auth session, categories and tasks.
// Stores are constructed once per application session and shared by reference.
package service

import (
	"time"

	"github.com/and161185/clear/internal/model"
)

// Notifier receives user-facing messages.
type Notifier interface {
	Show(message string, sev model.Severity, d time.Duration) int64
}

// Authenticator reports whether a session is present.
type Authenticator interface {
	IsAuthenticated() bool
}

type nopNotifier struct{}

func (nopNotifier) Show(string, model.Severity, time.Duration) int64 { return 0 }
