package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

var (
	ErrEgressDenied     = errors.New("egress to a required host was not authorised")
	ErrRelaunchRequired = errors.New("egress overrides were added and need a restart to apply")
)

// Metadata providers the resolvers call out to.
var providerHosts = []string{
	"https://coverartarchive.org",
	"https://archive.org",
	"https://*.archive.org",
	"https://api.themoviedb.org",
}

// Posters and stills only get downloaded when covers are stored locally.
// Cover Art Archive images already sit under *.archive.org.
var coverHosts = []string{
	"https://image.tmdb.org",
}

// Hosts lists the origins that need egress, starting with the server.
func Hosts(serverURL string, localAssets bool) []string {
	hosts := []string{}
	if origin := Origin(serverURL); origin != "" {
		hosts = append(hosts, origin)
	}
	hosts = append(hosts, providerHosts...)
	if localAssets {
		hosts = append(hosts, coverHosts...)
	}
	return hosts
}

// Origin reduces a URL to scheme://host[:port]. Unparseable input gives "".
func Origin(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host)
}

type Policy interface {
	IsAllowed(ctx context.Context, host string) (bool, error)
	// RequestOverride asks for host to be let through. Granted overrides
	// only take effect after a restart.
	RequestOverride(ctx context.Context, host string) (bool, error)
}

// AllowAll assumes the environment lets everything out.
type AllowAll struct{}

func (AllowAll) IsAllowed(context.Context, string) (bool, error) {
	return true, nil
}

func (AllowAll) RequestOverride(context.Context, string) (bool, error) {
	return true, nil
}

// Allowlist only allows origins it was configured with. An entry like
// https://*.archive.org matches any subdomain of archive.org, but not
// archive.org itself.
type Allowlist struct {
	entries []string
}

func NewAllowlist(entries []string) *Allowlist {
	allowlist := &Allowlist{}
	for _, entry := range entries {
		if entry = strings.ToLower(strings.TrimRight(strings.TrimSpace(entry), "/")); entry != "" {
			allowlist.entries = append(allowlist.entries, entry)
		}
	}
	return allowlist
}

func (a *Allowlist) IsAllowed(_ context.Context, host string) (bool, error) {
	host = strings.ToLower(strings.TrimRight(host, "/"))
	for _, entry := range a.entries {
		if matches(entry, host) {
			return true, nil
		}
	}
	return false, nil
}

// RequestOverride can't change a list that comes from the environment.
func (a *Allowlist) RequestOverride(context.Context, string) (bool, error) {
	return false, nil
}

func matches(entry, host string) bool {
	if entry == host {
		return true
	}
	scheme, pattern, ok := strings.Cut(entry, "://*.")
	if !ok {
		return false
	}
	hostScheme, hostName, ok := strings.Cut(host, "://")
	if !ok || hostScheme != scheme {
		return false
	}
	// A wildcard in the requested host is satisfied only by the same wildcard
	if strings.HasPrefix(hostName, "*.") {
		return false
	}
	return strings.HasSuffix(hostName, "."+pattern)
}

type Decision struct {
	Host    string `json:"host"`
	Allowed bool   `json:"allowed"`
}

type Gate struct {
	Policy   Policy
	Notifier Notifier
	Hosts    []string
}

func NewGate(policy Policy, notifier Notifier, hosts []string) *Gate {
	if policy == nil {
		policy = AllowAll{}
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Gate{Policy: policy, Notifier: notifier, Hosts: hosts}
}

// Check reports the policy decision for every host without asking for
// overrides.
func (g *Gate) Check(ctx context.Context) ([]Decision, error) {
	decisions := make([]Decision, 0, len(g.Hosts))
	for _, host := range g.Hosts {
		allowed, err := g.Policy.IsAllowed(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", host, err)
		}
		decisions = append(decisions, Decision{Host: host, Allowed: allowed})
	}
	return decisions, nil
}

// Ensure makes sure every host is allowed before polling starts. Hosts that
// aren't get an override request. A refused request stops the whole check
// with ErrEgressDenied, and any granted one ends it with ErrRelaunchRequired.
func (g *Gate) Ensure(ctx context.Context) error {
	relaunch := false
	for _, host := range g.Hosts {
		allowed, err := g.Policy.IsAllowed(ctx, host)
		if err != nil {
			return fmt.Errorf("check %s: %w", host, err)
		}
		if allowed {
			continue
		}

		granted, err := g.Policy.RequestOverride(ctx, host)
		if err != nil {
			return fmt.Errorf("request override for %s: %w", host, err)
		}
		if !granted {
			g.notify(ctx, "Failed to authorise egress",
				fmt.Sprintf("Jellyfin presence can't reach %s. Allow every host it needs and start it again.", host))
			return fmt.Errorf("%w: %s", ErrEgressDenied, host)
		}
		slog.Info("Egress override granted", slog.String("host", host))
		relaunch = true
	}

	if relaunch {
		g.notify(ctx, "Egress overrides added", "Jellyfin presence must be restarted for the new overrides to apply.")
		return ErrRelaunchRequired
	}
	return nil
}

func (g *Gate) notify(ctx context.Context, title, message string) {
	if err := g.Notifier.Notify(ctx, title, message); err != nil {
		slog.Error("Failed to send preflight notification", slog.String("error", err.Error()))
	}
}
