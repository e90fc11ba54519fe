// Package settings provides server-side settings management.
package settings

import (
	"fmt"
	"strings"

	"github.com/pagemenu/server/page"
)

// ScopeLimit is one admission limit: at most Limit concurrent sessions
// per distinct value of Scope.
type ScopeLimit struct {
	Scope   string `json:"scope"` // "owner", "channel" or "guild"
	Limit   int    `json:"limit"`
	Message string `json:"message,omitempty"`
}

type Settings struct {
	// DefaultTimeoutSeconds is the inactivity timeout applied to new
	// sessions that do not set their own. Zero disables the timer.
	DefaultTimeoutSeconds int `json:"default_timeout_seconds"`

	// DirectorStyle is the default page director format. "$" is the
	// current page, "&" the total.
	DirectorStyle string `json:"director_style,omitempty"`

	// SessionLimits are applied to the admission registry at startup.
	SessionLimits []ScopeLimit `json:"session_limits,omitempty"`

	// DeleteInteractions clears GoToPage prompt and reply messages once
	// the exchange finishes.
	DeleteInteractions bool `json:"delete_interactions"`
}

func Default() Settings {
	return Settings{
		DefaultTimeoutSeconds: 60,
		DirectorStyle:         page.DefaultDirectorStyle,
		DeleteInteractions:    true,
	}
}

func (s Settings) Validate() error {
	if s.DefaultTimeoutSeconds < 0 {
		return fmt.Errorf("default_timeout_seconds must not be negative, got %d", s.DefaultTimeoutSeconds)
	}
	if err := (page.Director{Style: s.DirectorStyle}).Validate(); err != nil {
		return err
	}
	for _, lim := range s.SessionLimits {
		switch strings.ToLower(lim.Scope) {
		case "owner", "channel", "guild":
		default:
			return fmt.Errorf("unknown limit scope %q, expected owner, channel or guild", lim.Scope)
		}
		if lim.Limit < 1 {
			return fmt.Errorf("session limit for scope %q must be at least one, got %d", lim.Scope, lim.Limit)
		}
	}
	return nil
}
