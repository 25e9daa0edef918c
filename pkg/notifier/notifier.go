// Package notifier provides release notification functionality
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/lngkit/sparkrelease/pkg/logger"
)

// SendFunc delivers one desktop notification.
type SendFunc func(title, message, icon string) error

// SoundFunc plays the failure sound.
type SoundFunc func() error

// ReleaseNotifier reports release outcomes on the desktop
type ReleaseNotifier struct {
	enabled bool
	beep    bool
	send    SendFunc
	sound   SoundFunc
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Beep plays the system bell on failure.
	Beep bool
	// Send replaces beeep.Notify, mostly for tests.
	Send SendFunc
	// Sound replaces the beeep system bell.
	Sound SoundFunc
}

// New creates a new release notifier
func New(config Config, log logger.Logger) *ReleaseNotifier {
	if log == nil {
		log = logger.Discard()
	}
	send := config.Send
	if send == nil {
		send = beeep.Notify
	}
	sound := config.Sound
	if sound == nil {
		sound = func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		}
	}
	return &ReleaseNotifier{
		enabled: config.Enabled,
		beep:    config.Beep,
		send:    send,
		sound:   sound,
		logger:  log,
	}
}

// NotifyReleaseSuccess notifies that a release was written to dir
func (n *ReleaseNotifier) NotifyReleaseSuccess(identifier, dir string, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Release created"
	message := fmt.Sprintf("%s built in %s\n%s", identifier, formatDuration(duration), dir)

	n.sendNotification(title, message)
}

// NotifyReleaseFailure notifies that a release failed
func (n *ReleaseNotifier) NotifyReleaseFailure(identifier string, err error) {
	if !n.enabled {
		return
	}

	if identifier == "" {
		identifier = "release"
	}
	title := "❌ Release failed"
	message := fmt.Sprintf("%s: %v", identifier, err)

	n.sendNotification(title, message)

	if n.beep {
		if err := n.sound(); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func (n *ReleaseNotifier) sendNotification(title, message string) {
	if err := n.send(title, message, ""); err != nil {
		// No notification daemon; fall back to the console.
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
