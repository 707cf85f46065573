package server

import (
	"encoding/json"
	"net/http"
	"strings"

	errs "github.com/coursedeck/authgate/internal/errors"
	"github.com/coursedeck/authgate/sessions"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	msgInvalidCredentials = "Invalid email or password."
	msgAdminRequired      = "Access denied. Admin credentials required."
	msgAccessDenied       = "Access denied."
	msgLoginFailed        = "Login failed. Please try again."
)

// LoginSubmissionHandler exchanges credentials with the backend and creates
// the session. For admin logins the role asserted by the freshly minted
// token is cross-checked, so a caller cannot reach the admin surface with a
// mismatched or stale role. No session is created on any denial.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Malformed request.")
			return
		}
		email := r.FormValue("email")
		password := r.FormValue("password")
		adminLogin := r.FormValue("admin") == "true" || r.FormValue("admin") == "on"
		if email == "" || password == "" {
			writeJSONError(w, http.StatusBadRequest, "Email and password are required.")
			return
		}

		pair, err := s.backend.Login(r.Context(), email, password)
		if err != nil {
			if errs.Is(err, errs.ErrInvalidCredentials) {
				writeJSONError(w, http.StatusUnauthorized, msgInvalidCredentials)
				return
			}
			s.log.Error().Err(err).Msg("backend login call failed")
			writeJSONError(w, http.StatusBadGateway, msgLoginFailed)
			return
		}

		tokenRole := s.tokens.Role(pair.AccessToken)
		if adminLogin && !strings.EqualFold(tokenRole, "admin") {
			writeJSONError(w, http.StatusForbidden, msgAdminRequired)
			return
		}
		if tokenRole == "" || pair.RefreshToken == "" {
			// A token without a role claim, or a login response without a
			// refresh token, cannot seed a fully-populated session.
			writeJSONError(w, http.StatusForbidden, msgAccessDenied)
			return
		}

		userName := ""
		userID := ""
		if payload, err := s.tokens.Decode(pair.AccessToken); err == nil {
			userID = payload.Sub
			if name, ok := payload.Extra["name"].(string); ok {
				userName = name
			}
		}

		rec := &sessions.Record{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			Role:         strings.ToLower(tokenRole),
			UserID:       userID,
			UserName:     userName,
			UserEmail:    email,
			ExpiresAt:    sessions.NowTimeFunc().Add(s.config.GetSessionMaxAge()).Unix(),
		}
		if err := s.cookies.Write(w, rec); err != nil {
			s.log.Error().Err(err).Msg("failed to write session cookie")
			writeJSONError(w, http.StatusInternalServerError, msgLoginFailed)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]string{
				"role":     rec.Role,
				"userId":   rec.UserID,
				"redirect": safeRedirect(r.FormValue("redirect"), rec.Role),
			},
		})
	}
}

// LogoutHandler notifies the backend best-effort, then unconditionally tears
// the local session down, legacy cookies included.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec := s.cookies.Read(r); rec != nil {
			if err := s.backend.Logout(r.Context(), rec.AccessToken); err != nil {
				s.log.Warn().Err(err).Msg("backend logout call failed; clearing session anyway")
			}
		}
		s.cookies.Expire(w)
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

// SessionInfoHandler tells collaborators who the current caller is. It is
// the "give me the current identity and role" surface.
func (s *Server) SessionInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := s.cookies.Read(r)
		if rec == nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		if _, err := s.tokens.Validate(rec.AccessToken); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"role":          rec.Role,
			"userId":        rec.UserID,
			"userName":      rec.UserName,
			"userEmail":     rec.UserEmail,
		})
	}
}

func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(loginPageHTML))
	}
}

func (s *Server) UnauthorizedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(unauthorizedPageHTML))
	}
}

func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<h1>Admin dashboard</h1>"))
	}
}

// safeRedirect keeps post-login redirects on this origin. Anything that does
// not look like a local path falls back to the role's landing page.
func safeRedirect(target, role string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return target
	}
	if role == "admin" {
		return RouteAdminDashboard
	}
	return "/"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

const loginPageHTML = `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
<form method="post" action="/auth/login">
  <input type="email" name="email" placeholder="Email" required>
  <input type="password" name="password" placeholder="Password" required>
  <input type="hidden" name="redirect" value="">
  <button type="submit">Sign in</button>
</form>
</body>
</html>`

const unauthorizedPageHTML = `<!DOCTYPE html>
<html>
<head><title>Not authorized</title></head>
<body>
<h1>Not authorized</h1>
<p>Your account does not have access to this page.</p>
<p><a href="/">Back to home</a> or <a href="/login">sign in with a different account</a>.</p>
</body>
</html>`
