package config

import (
	"fmt"
	"time"
)

// Theme names
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Defaults applied when a preference is unset
const (
	DefaultAPIURL         = "http://localhost:5000"
	DefaultTheme          = ThemeLight
	DefaultPollIntervalMs = 500
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                 `yaml:"version"`
	Preferences *Preferences        `yaml:"preferences,omitempty"`
	Services    map[string]*Service `yaml:"services,omitempty"` // Keyed by API base URL
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	Theme          string `yaml:"theme"`                    // "light" or "dark"
	APIURL         string `yaml:"api_url,omitempty"`        // Lab service base URL
	LastInterface  string `yaml:"last_interface,omitempty"` // Interface selected last time
	PollIntervalMs int    `yaml:"poll_interval_ms,omitempty"`
}

// Service remembers what was last used against one lab service.
type Service struct {
	LastInterface  string    `yaml:"last_interface,omitempty"`
	LastDHCPServer string    `yaml:"last_dhcp_server,omitempty"`
	LastSeen       time.Time `yaml:"last_seen,omitempty"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Preferences: defaultPreferences(),
		Services:    make(map[string]*Service),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		Theme:          DefaultTheme,
		APIURL:         DefaultAPIURL,
		PollIntervalMs: DefaultPollIntervalMs,
	}
}

// Theme returns the saved theme, or the default when unset or invalid
func (r *Registry) Theme() string {
	if r.Preferences == nil {
		return DefaultTheme
	}
	switch r.Preferences.Theme {
	case ThemeLight, ThemeDark:
		return r.Preferences.Theme
	default:
		return DefaultTheme
	}
}

// SetTheme sets the theme preference
func (r *Registry) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q (want %s or %s)", theme, ThemeLight, ThemeDark)
	}
	r.ensurePreferences().Theme = theme
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme
func (r *Registry) ToggleTheme() string {
	next := ThemeDark
	if r.Theme() == ThemeDark {
		next = ThemeLight
	}
	r.ensurePreferences().Theme = next
	return next
}

// APIURL returns the saved service URL, or the default
func (r *Registry) APIURL() string {
	if r.Preferences == nil || r.Preferences.APIURL == "" {
		return DefaultAPIURL
	}
	return r.Preferences.APIURL
}

// SetAPIURL sets the default service URL
func (r *Registry) SetAPIURL(url string) {
	r.ensurePreferences().APIURL = url
}

// PollInterval returns the saved poll interval, or the default
func (r *Registry) PollInterval() time.Duration {
	if r.Preferences == nil || r.Preferences.PollIntervalMs <= 0 {
		return DefaultPollIntervalMs * time.Millisecond
	}
	return time.Duration(r.Preferences.PollIntervalMs) * time.Millisecond
}

// GetService retrieves what was remembered for apiURL.
// Returns nil if nothing was remembered.
func (r *Registry) GetService(apiURL string) *Service {
	return r.Services[apiURL]
}

// EnsureService ensures an entry exists for apiURL and returns it.
func (r *Registry) EnsureService(apiURL string) *Service {
	if r.Services == nil {
		r.Services = make(map[string]*Service)
	}
	if svc, exists := r.Services[apiURL]; exists {
		return svc
	}
	svc := &Service{}
	r.Services[apiURL] = svc
	return svc
}

// RememberSession records the interface and DHCP server used against apiURL.
// Empty values leave the remembered ones untouched.
func (r *Registry) RememberSession(apiURL, iface, dhcpServer string) {
	svc := r.EnsureService(apiURL)
	if iface != "" {
		svc.LastInterface = iface
		r.ensurePreferences().LastInterface = iface
	}
	if dhcpServer != "" {
		svc.LastDHCPServer = dhcpServer
	}
	svc.LastSeen = time.Now()
}

func (r *Registry) ensurePreferences() *Preferences {
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
	return r.Preferences
}
