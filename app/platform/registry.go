package platform

import (
	"fmt"
	"log/slog"

	"github.com/lysyi3m/social-comb/app/cfg"
	"github.com/lysyi3m/social-comb/app/database"
)

type Status struct {
	Configured bool   `json:"configured"`
	Reason     string `json:"reason,omitempty"`
}

// Registry holds one client per configured platform and the reason every
// other platform is unavailable. It is filled once at startup.
type Registry struct {
	clients      map[database.Platform]Client
	unconfigured map[database.Platform]string
}

func NewRegistry() *Registry {
	return &Registry{
		clients:      map[database.Platform]Client{},
		unconfigured: map[database.Platform]string{},
	}
}

// FromConfig builds clients for every platform that has credentials.
func FromConfig(c *cfg.Cfg) *Registry {
	r := NewRegistry()

	if c.Twitter.Configured() {
		r.Register(NewTwitter(c.Twitter.BearerToken, ""))
	} else {
		r.MarkUnconfigured(database.PlatformTwitter, "TWITTER_BEARER_TOKEN is not set")
	}

	if c.LinkedIn.Configured() {
		r.Register(NewLinkedIn(c.LinkedIn.AccessToken, ""))
	} else {
		r.MarkUnconfigured(database.PlatformLinkedIn, "LINKEDIN_ACCESS_TOKEN is not set")
	}

	if c.Instagram.Configured() {
		r.Register(NewInstagram(c.Instagram.Username, c.Instagram.Password, c.Instagram.BaseURL))
	} else {
		r.MarkUnconfigured(database.PlatformInstagram, "INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD are not set")
	}

	return r
}

func (r *Registry) Register(c Client) {
	r.clients[c.Name()] = c
	delete(r.unconfigured, c.Name())
	slog.Info("Platform client ready", "platform", c.Name())
}

func (r *Registry) MarkUnconfigured(p database.Platform, reason string) {
	delete(r.clients, p)
	r.unconfigured[p] = reason
	slog.Warn("Platform not configured", "platform", p, "reason", reason)
}

func (r *Registry) Get(p database.Platform) (Client, error) {
	if c, ok := r.clients[p]; ok {
		return c, nil
	}
	if reason, ok := r.unconfigured[p]; ok {
		return nil, fmt.Errorf("%s: %w: %s", p.Lower(), ErrUnconfigured, reason)
	}
	return nil, fmt.Errorf("%s: %w", p.Lower(), ErrUnconfigured)
}

// Configured lists platforms with a client, in the canonical platform order.
func (r *Registry) Configured() []database.Platform {
	var out []database.Platform
	for _, p := range database.Platforms {
		if _, ok := r.clients[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) Status() map[database.Platform]Status {
	out := make(map[database.Platform]Status, len(database.Platforms))
	for _, p := range database.Platforms {
		if _, ok := r.clients[p]; ok {
			out[p] = Status{Configured: true}
			continue
		}
		reason := r.unconfigured[p]
		if reason == "" {
			reason = "no client registered"
		}
		out[p] = Status{Reason: reason}
	}
	return out
}
