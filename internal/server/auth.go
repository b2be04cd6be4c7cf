package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/jameshendricken/iot-dashboard/internal/api"
	"github.com/jameshendricken/iot-dashboard/internal/session"
)

const sessionCookie = "iotdash_session"

// Same pattern the registration form has always enforced.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 6

type sessionKey struct{}

func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// sessionFromContext returns the session a guard attached, or nil.
func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

// lookupSession resolves the request's session cookie against the store.
// Returns nil for missing, unknown, or expired cookies.
func (s *Server) lookupSession(r *http.Request) *session.Session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	sess, err := s.sessions.Get(c.Value)
	if err != nil {
		return nil
	}
	return sess
}

// requireAuth passes only requests with a valid session. Anyone else is
// redirected to the login entry point with the attempted URL preserved so
// login can return them there.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.lookupSession(r)
		if sess == nil {
			http.Redirect(w, r, "/?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(withSession(r.Context(), sess)))
	}
}

// requireAdmin passes requireAuth first, then demands the admin role. A
// valid non-admin session lands on the default dashboard, not on login.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFromContext(r.Context()).IsAdmin() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}

// ── Login ───────────────────────────────────────────────────────────────

type loginData struct {
	Nav           string
	User          *session.Session
	Next          string
	Email         string
	EmailError    string
	PasswordError string
	GlobalError   string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.lookupSession(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render.render(w, "login.html", loginData{Next: r.URL.Query().Get("next")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := loginData{
		Next:  r.FormValue("next"),
		Email: strings.TrimSpace(r.FormValue("email")),
	}
	password := r.FormValue("password")

	// Validate before any network call.
	if !emailPattern.MatchString(data.Email) {
		data.EmailError = "Please enter a valid email address."
	}
	if password == "" {
		data.PasswordError = "Please enter your password."
	}
	if data.EmailError != "" || data.PasswordError != "" {
		s.render.render(w, "login.html", data)
		return
	}

	id, err := s.backend.Login(r.Context(), data.Email, password)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			// The backend's own message goes next to the password field.
			data.PasswordError = apiErr.Detail
			if data.PasswordError == "" {
				data.PasswordError = "Authentication failed"
			}
		} else {
			data.GlobalError = "Something went wrong. Please try again."
		}
		s.activity.Logf("auth", "error", "Login failed for %s", data.Email)
		s.render.render(w, "login.html", data)
		return
	}

	s.establishSession(w, r, id, data.Next)
}

// establishSession stores the identity from a successful login/registration
// response atomically and navigates to the landing page (or the originally
// requested location).
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, id *api.Identity, next string) {
	sess, err := s.sessions.Create(id.Email, id.Organisation, id.Role, id.Name)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.activity.Logf("auth", "success", "%s signed in", id.Email)

	// Only same-site relative targets are honoured.
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/dashboard"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// ── Registration ────────────────────────────────────────────────────────

type registerData struct {
	Nav           string
	User          *session.Session
	Name          string
	Email         string
	EmailError    string
	PasswordError string
	GlobalError   string
	Strength      string
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render.render(w, "register.html", registerData{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := registerData{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
	}
	password := r.FormValue("password")
	data.Strength = passwordStrength(password)

	if !emailPattern.MatchString(data.Email) {
		data.EmailError = "Please enter a valid email address."
	}
	if len(password) < minPasswordLen {
		data.PasswordError = "Password must be at least 6 characters long."
	}
	if data.EmailError != "" || data.PasswordError != "" {
		s.render.render(w, "register.html", data)
		return
	}

	id, err := s.backend.Register(r.Context(), data.Name, data.Email, password)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			data.GlobalError = apiErr.Detail
		} else {
			data.GlobalError = "Registration failed. Please try again."
		}
		s.render.render(w, "register.html", data)
		return
	}

	s.activity.Logf("auth", "success", "%s registered", id.Email)
	s.establishSession(w, r, id, "")
}

// passwordStrength mirrors the registration form's meter: short passwords
// are Weak, mixed-case with digits and symbols is Strong, anything else is
// Medium.
func passwordStrength(password string) string {
	if len(password) < minPasswordLen {
		return "Weak"
	}
	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case !(r >= 'a' && r <= 'z'):
			hasSymbol = true
		}
	}
	if hasUpper && hasDigit && hasSymbol {
		return "Strong"
	}
	return "Medium"
}

// ── Password reset ──────────────────────────────────────────────────────

type resetData struct {
	Nav        string
	User       *session.Session
	Email      string
	EmailError string
	Error      string
	Message    string
}

func (s *Server) handleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	s.render.render(w, "reset_password.html", resetData{})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := resetData{Email: strings.TrimSpace(r.FormValue("email"))}
	if !emailPattern.MatchString(data.Email) {
		data.EmailError = "Please enter a valid email address."
		s.render.render(w, "reset_password.html", data)
		return
	}

	if err := s.backend.ResetPassword(r.Context(), data.Email); err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			data.Error = apiErr.Detail
		} else {
			data.Error = "Something went wrong. Please try again."
		}
		s.render.render(w, "reset_password.html", data)
		return
	}

	data.Message = "Check your email for a password reset link."
	s.render.render(w, "reset_password.html", data)
}

// ── Logout ──────────────────────────────────────────────────────────────

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		_ = s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
