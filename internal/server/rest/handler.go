// Package rest exposes the account, session, OTP and restaurant services
// over HTTP/JSON.
package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/auth"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/ratelimit"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/services"
)

type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	CurrentUser(ctx context.Context, id string) (*models.AccountView, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, upd services.ProfileUpdate) (*models.Profile, error)
	UpdatePassword(ctx context.Context, id string, p services.PasswordChange) error
	SetStatus(ctx context.Context, id string, active int) (*models.AccountView, error)
}

type Sessions interface {
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, token string) error
	LogoutStatus(ctx context.Context, token string) (bool, error)
}

type Tokens interface {
	Validate(ctx context.Context, token string) (*auth.Claims, error)
}

type OTP interface {
	Send(ctx context.Context, token string) (*services.OTPDispatch, error)
	Resend(ctx context.Context, token string) (*services.OTPDispatch, error)
	Verify(ctx context.Context, token, code string) (*services.OTPVerification, error)
	Size() int
}

type Restaurants interface {
	Register(ctx context.Context, ownerID string, in services.RestaurantInput) (*models.Restaurant, error)
	List(ctx context.Context) ([]*models.Restaurant, error)
	Mine(ctx context.Context, ownerID string) (*models.Restaurant, error)
}

// Database is the lazily connected store every request depends on.
type Database interface {
	Ensure(ctx context.Context) error
}

// Handler holds the collaborators of every route.
type Handler struct {
	accounts    Accounts
	sessions    Sessions
	tokens      Tokens
	otp         OTP
	restaurants Restaurants
	db          Database
	limiter     ratelimit.Limiter
	logger      logging.Logger
	now         func() time.Time
}

type Deps struct {
	Accounts    Accounts
	Sessions    Sessions
	Tokens      Tokens
	OTP         OTP
	Restaurants Restaurants
	Database    Database
	Limiter     ratelimit.Limiter
}

func NewHandler(d Deps, l logging.Logger) *Handler {
	return &Handler{
		accounts:    d.Accounts,
		sessions:    d.Sessions,
		tokens:      d.Tokens,
		otp:         d.OTP,
		restaurants: d.Restaurants,
		db:          d.Database,
		limiter:     d.Limiter,
		logger:      l.With("module", "rest"),
		now:         time.Now,
	}
}

func (h *Handler) caller(r *http.Request) (*auth.Claims, error) {
	c := claimsFrom(r.Context())
	if c == nil {
		return nil, errNoClaims
	}
	return c, nil
}

// root answers GET /.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Restaurant menu API is running", map[string]any{
		"timestamp": h.now().UTC(),
	})
}

func (h *Handler) otpHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "OTP service is running", map[string]any{
		"pending":   h.otp.Size(),
		"timestamp": h.now().UTC(),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "User registered successfully", res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", res)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	c, err := h.caller(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.accounts.CurrentUser(r.Context(), c.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Token is valid", map[string]any{"user": user})
}

type otpRequest struct {
	Token string `json:"token"`
	OTP   string `json:"otp"`
}

// otpToken reads the token from the body, falling back to the bearer header.
func otpToken(r *http.Request, req *otpRequest) (string, error) {
	if r.ContentLength != 0 {
		if err := decodeJSON(r, req); err != nil {
			return "", err
		}
	}
	if t := strings.TrimSpace(req.Token); t != "" {
		return t, nil
	}
	if t, msg := bearerToken(r); msg == "" {
		return t, nil
	}
	return "", common.NewValidationError("token", "token is required")
}

func (h *Handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	h.issueOTP(w, r, h.otp.Send, "OTP sent successfully")
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	h.issueOTP(w, r, h.otp.Resend, "OTP resent successfully")
}

func (h *Handler) issueOTP(w http.ResponseWriter, r *http.Request,
	issue func(context.Context, string) (*services.OTPDispatch, error), message string) {
	var req otpRequest
	token, err := otpToken(r, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := issue(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, message, res)
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	token, err := otpToken(r, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.OTP) == "" {
		h.writeError(w, r, common.NewValidationError("otp", "otp is required"))
		return
	}

	res, err := h.otp.Verify(r.Context(), token, req.OTP)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	message := "Email verified successfully"
	if !res.Persisted {
		message = "Email verified, but the verification status could not be saved"
	}
	writeSuccess(w, http.StatusOK, message, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), tokenFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.LogoutAll(r.Context(), tokenFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Logged out from all devices", nil)
}

// logoutStatus does not require a valid token: a revoked or expired token
// is exactly what it reports on.
func (h *Handler) logoutStatus(w http.ResponseWriter, r *http.Request) {
	token, msg := bearerToken(r)
	if msg != "" {
		writeFailure(w, http.StatusUnauthorized, msg)
		return
	}

	out, err := h.sessions.LogoutStatus(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Logout status retrieved", map[string]bool{"isLoggedOut": out})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	c, err := h.caller(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.accounts.GetProfile(r.Context(), c.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile retrieved successfully", p)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	c, err := h.caller(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var upd services.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.accounts.UpdateProfile(r.Context(), c.UserID, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile updated successfully", p)
}

func (h *Handler) updatePassword(w http.ResponseWriter, r *http.Request) {
	c, err := h.caller(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var p services.PasswordChange
	if err := decodeJSON(r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.accounts.UpdatePassword(r.Context(), c.UserID, p); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password updated successfully", nil)
}

type statusRequest struct {
	Active *int `json:"isActive"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	c, err := h.caller(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Active == nil {
		h.writeError(w, r, common.NewValidationError("isActive", "cannot be blank"))
		return
	}

	view, err := h.accounts.SetStatus(r.Context(), c.UserID, *req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User status updated successfully", view)
}

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	c, err := h.caller(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in services.RestaurantInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	rest, err := h.restaurants.Register(r.Context(), c.UserID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Restaurant registered successfully", rest)
}

func (h *Handler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	list, err := h.restaurants.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Restaurants retrieved successfully", list)
}

func (h *Handler) myRestaurant(w http.ResponseWriter, r *http.Request) {
	c, err := h.caller(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rest, err := h.restaurants.Mine(r.Context(), c.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Restaurant retrieved successfully", rest)
}
