package routeguard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// MaxPasswordLength is the longest password Submit sends to the server.
const MaxPasswordLength = 128

// Inline error messages shown on the password form.
const (
	MessageIncorrect       = "Incorrect password"
	MessageTooManyAttempts = "Too many attempts. Please try again later."
)

// State is what the page shell renders.
type State int

const (
	StateLoading State = iota
	StateRouteDisabled
	StatePasswordRequired
	StateContent
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateRouteDisabled:
		return "route_disabled"
	case StatePasswordRequired:
		return "password_required"
	case StateContent:
		return "content"
	default:
		return "unknown"
	}
}

// View is a snapshot of the guard.
type View struct {
	Path  string
	State State
	// Error is the inline form error in StatePasswordRequired.
	Error string
}

// Authenticator is the subset of Client the guard needs.
type Authenticator interface {
	CheckAuth(ctx context.Context) (bool, error)
	Authenticate(ctx context.Context, password string) error
}

// Guard is the route guard state machine. It is safe for concurrent use: a
// navigation that starts while another is waiting on the server supersedes
// it, and the stale result is discarded.
type Guard struct {
	routes *Matcher
	auth   Authenticator
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	view       View
}

// NewGuard creates a Guard in StateLoading.
func NewGuard(routes *Matcher, auth Authenticator, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		routes: routes,
		auth:   auth,
		logger: logger,
	}
}

// View returns the current view.
func (g *Guard) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// Navigate moves the guard to path and returns the resulting view.
//
// Disabled routes end in StateRouteDisabled. Protected routes ask the server
// and end in StateContent only when the session is confirmed; any error fails
// closed to StatePasswordRequired. Other routes end in StateContent.
func (g *Guard) Navigate(ctx context.Context, path string) View {
	gen := g.begin(path)

	if !g.routes.Enabled(path) {
		return g.finish(gen, View{Path: path, State: StateRouteDisabled})
	}
	if !g.routes.Protected(path) {
		return g.finish(gen, View{Path: path, State: StateContent})
	}

	ok, err := g.auth.CheckAuth(ctx)
	if err != nil {
		g.logger.Warn("session check failed", "path", path, "error", err)
	}
	if err != nil || !ok {
		return g.finish(gen, View{Path: path, State: StatePasswordRequired})
	}
	return g.finish(gen, View{Path: path, State: StateContent})
}

// Submit sends password from the password form. It has no effect outside
// StatePasswordRequired.
func (g *Guard) Submit(ctx context.Context, password string) View {
	g.mu.Lock()
	if g.view.State != StatePasswordRequired {
		v := g.view
		g.mu.Unlock()
		return v
	}
	gen := g.generation
	path := g.view.Path
	g.mu.Unlock()

	if password == "" || len(password) > MaxPasswordLength {
		return g.finish(gen, View{Path: path, State: StatePasswordRequired, Error: MessageIncorrect})
	}

	err := g.auth.Authenticate(ctx, password)
	switch {
	case err == nil:
		return g.finish(gen, View{Path: path, State: StateContent})
	case errors.Is(err, ErrTooManyAttempts):
		return g.finish(gen, View{Path: path, State: StatePasswordRequired, Error: MessageTooManyAttempts})
	default:
		if !errors.Is(err, ErrIncorrectPassword) {
			g.logger.Warn("authentication failed", "path", path, "error", err)
		}
		return g.finish(gen, View{Path: path, State: StatePasswordRequired, Error: MessageIncorrect})
	}
}

// begin starts a navigation and returns its generation.
func (g *Guard) begin(path string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation++
	g.view = View{Path: path, State: StateLoading}
	return g.generation
}

// finish stores v if gen is still current and returns the current view.
func (g *Guard) finish(gen uint64, v View) View {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen == g.generation {
		g.view = v
	}
	return g.view
}
