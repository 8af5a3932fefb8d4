package tui

import (
	"time"

	"github.com/vsariola/rumpu/engine"
)

type (
	// Alerts is the list of currently visible alert popups. Alerts with
	// the same name replace each other instead of stacking, so a spammy
	// source (e.g. the volume analyzer complaining about NaNs on every
	// buffer) shows as a single popup that just stays fresh.
	Alerts struct {
		list []alertEntry
		now  func() time.Time // replaced in tests
	}

	alertEntry struct {
		alert   engine.Alert
		expires time.Time
	}
)

func NewAlerts() *Alerts {
	return &Alerts{now: time.Now}
}

// Add adds an alert, replacing the previous one with the same name, if
// any. Unnamed alerts always get their own entry.
func (a *Alerts) Add(alert engine.Alert) {
	entry := alertEntry{alert: alert, expires: a.now().Add(alert.Duration)}
	if alert.Name != "" {
		for i := range a.list {
			if a.list[i].alert.Name == alert.Name {
				a.list[i] = entry
				return
			}
		}
	}
	a.list = append(a.list, entry)
}

// Prune drops the alerts whose duration has passed. Called on every
// redraw; the transport status messages keep the redraws coming.
func (a *Alerts) Prune() {
	now := a.now()
	kept := a.list[:0]
	for _, entry := range a.list {
		if entry.expires.After(now) {
			kept = append(kept, entry)
		}
	}
	a.list = kept
}

// Visible returns the alerts to draw, oldest first.
func (a *Alerts) Visible() []engine.Alert {
	ret := make([]engine.Alert, len(a.list))
	for i, entry := range a.list {
		ret[i] = entry.alert
	}
	return ret
}
