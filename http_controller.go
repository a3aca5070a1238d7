package session

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// ControllerRoutes configures the paths the controller mounts.
type ControllerRoutes struct {
	Login         string
	Logout        string
	Register      string
	PasswordReset string
	Account       string
}

// ControllerViews configures the templates rendered per route.
type ControllerViews struct {
	Login         string
	Register      string
	PasswordReset string
	Account       string
}

// Controller mounts the session routes over go-router and drives the
// Gateway from form submissions. Rendering stays out of the core: handlers
// only pass view contexts through.
type Controller struct {
	Debug        bool
	Logger       Logger
	Gateway      *Gateway
	Guard        *Guard
	Cache        *ProfileCache
	Auther       *RouteProtector
	Routes       *ControllerRoutes
	Views        *ControllerViews
	ErrorHandler router.ErrorHandler
}

type ControllerOption func(*Controller) *Controller

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &ControllerRoutes{
			Login:         "/login",
			Logout:        "/logout",
			Register:      "/register",
			PasswordReset: "/password-reset",
			Account:       "/account",
		},
		Views: &ControllerViews{
			Login:         "login",
			Register:      "register",
			PasswordReset: "password_reset",
			Account:       "account",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Gateway == nil {
		panic("Missing Gateway in session controller...")
	}

	return c
}

func WithControllerGateway(g *Gateway) ControllerOption {
	return func(c *Controller) *Controller {
		c.Gateway = g
		return c
	}
}

func WithControllerGuard(g *Guard) ControllerOption {
	return func(c *Controller) *Controller {
		c.Guard = g
		return c
	}
}

func WithControllerCache(cache *ProfileCache) ControllerOption {
	return func(c *Controller) *Controller {
		c.Cache = cache
		return c
	}
}

// WithControllerProtector routes sign in and sign out through the cookie
// managing RouteProtector instead of calling the Gateway directly.
func WithControllerProtector(p *RouteProtector) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = p
		return c
	}
}

func WithControllerLogger(l Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// RegisterSessionRoutes mounts the controller on the given router.
func RegisterSessionRoutes[T any](app router.Router[T], opts ...ControllerOption) {
	controller := NewController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.PasswordReset, controller.PasswordResetShow).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Get(controller.Routes.Account, controller.AccountShow).
		SetName("account.get")
	app.Post(controller.Routes.Account, controller.AccountUpdate).
		SetName("account.post")
	app.Post(fmt.Sprintf("%s/password", controller.Routes.Account), controller.PasswordChange).
		SetName("account-password.post")
}

func (a *Controller) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

func (a *Controller) LoginPost(ctx router.Context) error {
	payload := new(SignInPayload)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= SESSION LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	if err := a.signIn(ctx, *payload); err != nil {
		// backend message surfaces verbatim, forms decide presentation
		errs["authentication"] = err.Error()
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := "/"
	if a.Auther != nil {
		redirect = a.Auther.GetRedirect(ctx, "/")
	}

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

// signIn goes through the protector when one is configured so the session
// cookie is set alongside the gateway state change.
func (a *Controller) signIn(ctx router.Context, payload SignInPayload) error {
	if a.Auther != nil {
		return a.Auther.Login(ctx, payload)
	}
	_, err := a.Gateway.SignIn(ctx.Context(), payload)
	return err
}

func (a *Controller) LogOut(ctx router.Context) error {
	if a.Auther != nil {
		a.Auther.Logout(ctx)
		return ctx.Redirect("/", router.StatusTemporaryRedirect)
	}

	if err := a.Gateway.SignOut(ctx.Context()); err != nil {
		// local state is already cleared, the remote failure is only logged
		a.Logger.Warn("remote sign-out failed", "error", err)
	}
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *Controller) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": SignUpPayload{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(MinPasswordLength, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *Controller) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	signUp := SignUpPayload{
		Email:    payload.Email,
		Password: payload.Password,
		FullName: payload.FullName,
	}

	if _, err := a.Gateway.SignUp(ctx.Context(), signUp); err != nil {
		a.Logger.Error("sign up error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error creating account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful user registration",
	}).Redirect("/", fiber.StatusSeeOther)
}

func (a *Controller) PasswordResetShow(ctx router.Context) error {
	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *Controller) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if err := a.Gateway.ResetPassword(ctx.Context(), payload.Email); err != nil {
		a.Logger.Error("password reset error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error requesting password reset",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record": payload,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password reset requested, check your inbox",
	}).Redirect("/", fiber.StatusSeeOther)
}

func (a *Controller) AccountShow(ctx router.Context) error {
	if redirected, err := a.gate(ctx, Requirement{RequireAuth: true}); redirected {
		return err
	}

	profile := a.currentProfile(ctx)

	return ctx.Render(a.Views.Account, router.ViewContext{
		"errors":  nil,
		"profile": profile,
	})
}

// AccountUpdatePayload holds the editable profile fields.
type AccountUpdatePayload struct {
	FullName  string `form:"full_name" json:"full_name"`
	AvatarURL string `form:"avatar_url" json:"avatar_url"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

// Validate will validate the payload
func (r AccountUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Length(0, 200)),
		validation.Field(&r.AvatarURL, is.URL),
	)
}

func (a *Controller) AccountUpdate(ctx router.Context) error {
	if redirected, err := a.gate(ctx, Requirement{RequireAuth: true}); redirected {
		return err
	}

	payload := new(AccountUpdatePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Account, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	changes := ProfileChanges{}
	if payload.FullName != "" {
		changes.FullName = &payload.FullName
	}
	if payload.AvatarURL != "" {
		changes.AvatarURL = &payload.AvatarURL
	}
	if payload.Phone != "" {
		changes.Phone = &payload.Phone
	}

	profile, err := a.Gateway.UpdateProfile(ctx.Context(), changes)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error updating profile",
		}).Render(a.Views.Account, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Profile updated",
	}).Render(a.Views.Account, router.ViewContext{
		"profile": profile,
	})
}

// PasswordChangePayload holds values for a password change
type PasswordChangePayload struct {
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *Controller) PasswordChange(ctx router.Context) error {
	if redirected, err := a.gate(ctx, Requirement{RequireAuth: true}); redirected {
		return err
	}

	payload := new(PasswordChangePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Account, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	// length policy lives in the gateway so the message matches everywhere
	if err := a.Gateway.UpdatePassword(ctx.Context(), payload.NewPassword); err != nil {
		return ctx.Render(a.Views.Account, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password updated",
	}).Redirect(a.Routes.Account, fiber.StatusSeeOther)
}

// gate evaluates the route guard; a true return means the response has been
// written (loading placeholder or redirect) and the handler should stop.
func (a *Controller) gate(ctx router.Context, req Requirement) (bool, error) {
	if a.Guard == nil {
		return false, nil
	}

	decision := a.Guard.Check(req)

	switch {
	case decision.IsLoading():
		return true, ctx.Status(fiber.StatusServiceUnavailable).Render("loading", router.ViewContext{})
	case decision.IsRedirect():
		return true, ctx.Redirect(decision.RedirectTo, router.StatusSeeOther)
	default:
		return false, nil
	}
}

func (a *Controller) currentProfile(ctx router.Context) *Profile {
	if a.Cache == nil || a.Guard == nil {
		return nil
	}

	state := a.Guard.store.Snapshot()
	if !state.Authenticated() {
		return nil
	}

	profile, err := a.Cache.Get(ctx.Context(), state.User.ID)
	if err != nil {
		a.Logger.Warn("profile fetch failed", "user_id", state.User.ID, "error", err)
		return nil
	}

	return profile
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
