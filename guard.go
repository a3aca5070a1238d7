package session

// DecisionKind enumerates the three route guard outcomes.
type DecisionKind string

const (
	DecisionLoading  DecisionKind = "loading"
	DecisionRedirect DecisionKind = "redirect"
	DecisionRender   DecisionKind = "render"
)

// Decision is the guard verdict for a single evaluation.
type Decision struct {
	Kind       DecisionKind
	RedirectTo string
}

func (d Decision) IsLoading() bool  { return d.Kind == DecisionLoading }
func (d Decision) IsRedirect() bool { return d.Kind == DecisionRedirect }
func (d Decision) IsRender() bool   { return d.Kind == DecisionRender }

// Requirement describes what a route demands from the session.
type Requirement struct {
	// RequireAuth gates the route behind a signed-in user.
	RequireAuth bool
	// RequiredRole additionally demands an exact profile role. Implies
	// RequireAuth.
	RequiredRole Role
	// LoginRoute and DeniedRoute override the redirect targets.
	LoginRoute  string
	DeniedRoute string
}

func (r Requirement) loginRoute() string {
	if r.LoginRoute != "" {
		return r.LoginRoute
	}
	return "/login"
}

func (r Requirement) deniedRoute() string {
	if r.DeniedRoute != "" {
		return r.DeniedRoute
	}
	return "/"
}

// Evaluate is the route guard: a pure, synchronous function of the current
// State and role, re-run on every evaluation with no retries or side
// effects.
//
// Precedence: loading always wins (no redirect is issued before the initial
// session check resolves), then missing-user, then role mismatch.
func Evaluate(state State, role Role, req Requirement) Decision {
	if state.Loading || !state.InitialCheckComplete {
		return Decision{Kind: DecisionLoading}
	}

	needsAuth := req.RequireAuth || req.RequiredRole != ""

	if needsAuth && !state.Authenticated() {
		return Decision{Kind: DecisionRedirect, RedirectTo: req.loginRoute()}
	}

	if req.RequiredRole != "" {
		if role == "" {
			role = RoleUser
		}
		if role != req.RequiredRole {
			return Decision{Kind: DecisionRedirect, RedirectTo: req.deniedRoute()}
		}
	}

	return Decision{Kind: DecisionRender}
}

// Guard binds Evaluate to a Store and ProfileCache so callers can ask for a
// decision without threading state around. Role is read off the cached
// profile only (Peek): guard checks stay synchronous and never trigger a
// fetch.
type Guard struct {
	store *Store
	cache *ProfileCache
}

func NewGuard(store *Store, cache *ProfileCache) *Guard {
	return &Guard{store: store, cache: cache}
}

// Check evaluates the requirement against the current snapshot.
func (g *Guard) Check(req Requirement) Decision {
	state := g.store.Snapshot()

	role := Role("")
	if state.Authenticated() && g.cache != nil {
		if profile, ok := g.cache.Peek(state.User.ID); ok {
			role = RoleOrDefault(profile)
		}
	}

	return Evaluate(state, role, req)
}
