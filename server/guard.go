package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/coursedeck/authgate/sessions"
	"github.com/coursedeck/authgate/token"
)

// Decision is the outcome of evaluating a request against the guard.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionRedirectToLogin
	DecisionRedirectToUnauthorized
)

// Outcome carries the decision and, for redirects, the target URL.
type Outcome struct {
	Decision Decision
	Location string
}

// GuardRule protects every path under Prefix, requiring Role.
type GuardRule struct {
	Prefix string
	Role   string
}

// Guard gates protected route prefixes before any handler runs. Evaluate is
// a pure function of (request cookies, path): it performs no writes and
// never extends a session. An expired access token here means the client
// failed to refresh in time; the guard only gates.
type Guard struct {
	rules   []GuardRule
	cookies *sessions.CookieStore
	tokens  *token.Codec
}

func NewGuard(rules []GuardRule, cookies *sessions.CookieStore, tokens *token.Codec) *Guard {
	return &Guard{rules: rules, cookies: cookies, tokens: tokens}
}

// Evaluate decides whether the request may proceed.
func (g *Guard) Evaluate(r *http.Request) Outcome {
	rule, protected := g.match(r.URL.Path)
	if !protected {
		return Outcome{Decision: DecisionAllow}
	}

	rec := g.cookies.Read(r)
	if rec == nil {
		// Covers both the missing-cookie and garbled-cookie cases.
		return g.toLogin(r.URL.Path)
	}

	payload, err := g.tokens.Validate(rec.AccessToken)
	if err != nil {
		return g.toLogin(r.URL.Path)
	}

	role := rec.Role
	if role == "" {
		role = payload.Role
	}
	if !strings.EqualFold(role, rule.Role) {
		// The caller is authenticated, just not authorized: send them to
		// the unauthorized page, not back to login.
		return Outcome{Decision: DecisionRedirectToUnauthorized, Location: RouteUnauthorized}
	}

	return Outcome{Decision: DecisionAllow}
}

// Middleware applies Evaluate to matching prefixes and passes everything
// else through untouched.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome := g.Evaluate(r)
		if outcome.Decision != DecisionAllow {
			http.Redirect(w, r, outcome.Location, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) match(path string) (GuardRule, bool) {
	for _, rule := range g.rules {
		if pathHasPrefix(path, rule.Prefix) {
			return rule, true
		}
	}
	return GuardRule{}, false
}

// pathHasPrefix matches on whole path segments, so a "/admin" rule guards
// "/admin" and "/admin/courses" but not "/administrator-docs".
func pathHasPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) ||
		strings.HasSuffix(prefix, "/") ||
		path[len(prefix)] == '/'
}

func (g *Guard) toLogin(originalPath string) Outcome {
	return Outcome{
		Decision: DecisionRedirectToLogin,
		Location: RouteLogin + "?redirect=" + url.QueryEscape(originalPath),
	}
}

// ParseGuardRules parses a comma-separated "prefix=role" list. Entries
// without a role or prefix are skipped.
func ParseGuardRules(spec string) []GuardRule {
	var rules []GuardRule
	for _, entry := range strings.Split(spec, ",") {
		prefix, role, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || prefix == "" || role == "" {
			continue
		}
		rules = append(rules, GuardRule{Prefix: prefix, Role: role})
	}
	return rules
}
