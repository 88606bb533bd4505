// Package notify shows desktop notifications when the alarm starts sounding.
package notify

import (
	"context"
	"fmt"

	"github.com/ncruces/zenity"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// title is the notification title.
const title = "Alarm clock"

// sendFunc matches zenity.Notify.
type sendFunc func(text string, options ...zenity.Option) error

// Desktop notifies through the host's notification service.
type Desktop struct {
	send sendFunc
}

// NewDesktop creates a notifier backed by zenity.
func NewDesktop() *Desktop {
	return &Desktop{send: zenity.Notify}
}

// AlarmStarted announces a sounding alarm. Failures are logged and dropped:
// a missing notification daemon must not affect the alarm.
func (d *Desktop) AlarmStarted(ctx context.Context, snapshot *domain.Snapshot) {
	text := fmt.Sprintf("Alarm %s is ringing", snapshot.Target)

	if err := d.send(text, zenity.Title(title), zenity.InfoIcon); err != nil {
		logger.WarnKV(ctx, "Desktop notification failed", "error", err)
	}
}
