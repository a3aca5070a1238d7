package session

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session/middleware/guardware"
)

// rejectedRouteKey names the cookie that remembers where an unauthenticated
// request was headed so Login can send the user back afterwards.
const rejectedRouteKey = "rejected_route"

// TokenIssuer is implemented by backends that can mint session tokens,
// LocalBackend among them.
type TokenIssuer interface {
	IssueToken(ctx context.Context) (string, error)
}

// RouteProtector bridges the Gateway and token service to cookie-carried
// sessions: it mounts the guard middleware on routes and manages the session
// cookie on sign in and sign out.
type RouteProtector struct {
	gateway          *Gateway
	issuer           TokenIssuer
	tokens           TokenService
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewRouteProtector(gateway *Gateway, issuer TokenIssuer, tokens TokenService, cfg Config) (*RouteProtector, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteProtector{
		cfg:            cfg,
		gateway:        gateway,
		issuer:         issuer,
		tokens:         tokens,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteProtector) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute gates a route behind a valid session token.
func (a *RouteProtector) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return guardware.New(guardware.Config{
		ErrorHandler: errorHandler,
		SigningKey: guardware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:     cfg.GetAuthScheme(),
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		TokenValidator: validatorAdapter{a.tokens},
		ContextEnricher: func(c context.Context, claims guardware.SessionClaims) context.Context {
			return enrichContextFromClaims(c, claims)
		},
	})
}

// RoleRoute gates a route behind a valid session token carrying the given
// role. Authenticated users without the role are sent to the default route
// rather than the login page.
func (a *RouteProtector) RoleRoute(cfg Config, role Role) router.MiddlewareFunc {
	return guardware.New(guardware.Config{
		SigningKey: guardware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:        cfg.GetAuthScheme(),
		ContextKey:        cfg.GetContextKey(),
		TokenLookup:       cfg.GetTokenLookup(),
		TokenValidator:    validatorAdapter{a.tokens},
		RequiredRole:      string(role),
		LoginRoute:        cfg.GetLoginRoute(),
		DeniedRoute:       cfg.GetDefaultRoute(),
		RedirectOnFailure: true,
		ContextEnricher: func(c context.Context, claims guardware.SessionClaims) context.Context {
			return enrichContextFromClaims(c, claims)
		},
	})
}

// Login signs the user in through the Gateway and sets the session cookie.
func (a *RouteProtector) Login(ctx router.Context, payload SignInPayload) error {
	if _, err := a.gateway.SignIn(ctx.Context(), payload); err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	token, err := a.issuer.IssueToken(ctx.Context())
	if err != nil {
		a.Logger.Error("Token issue error: %s", err)
		return err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return nil
}

// Logout clears the session cookie and signs out through the Gateway.
func (a *RouteProtector) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
	if err := a.gateway.SignOut(ctx.Context()); err != nil {
		a.Logger.Warn("remote sign-out failed", "error", err)
	}
}

func (a *RouteProtector) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteProtector) GetRedirect(ctx router.Context, def ...string) string {
	r := ctx.Cookies(rejectedRouteKey)
	if r == "" {
		return def[0]
	}
	a.cookieDel(ctx, rejectedRouteKey)
	return r
}

func (a *RouteProtector) SetRedirect(ctx router.Context) {
	a.Logger.Info("Setting redirect cookie", "key", rejectedRouteKey, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRouteKey,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteProtector) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteProtector) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteProtector) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.cfg.GetLoginRoute(), statusCode)
}

func (a *RouteProtector) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

// validatorAdapter narrows TokenService.Validate to the middleware's
// interface; the concrete claims pass through unchanged.
type validatorAdapter struct {
	tokens TokenService
}

func (v validatorAdapter) Validate(tokenString string) (guardware.SessionClaims, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// enrichContextFromClaims projects validated claims into the standard context
// so downstream handlers can resolve the session without the router context.
func enrichContextFromClaims(c context.Context, claims guardware.SessionClaims) context.Context {
	user, err := authUserFromSubject(claims.UserID(), claims.Email())
	if err != nil {
		return c
	}

	return WithStateContext(c, State{
		User:                 user,
		InitialCheckComplete: true,
	})
}
