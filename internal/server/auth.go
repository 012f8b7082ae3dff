package server

import (
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/manp-monitoring/report-service/internal/drive"
	"golang.org/x/oauth2"
)

func (s *Server) driveOAuthConfig() *oauth2.Config {
	return drive.OAuthConfig(s.config.GoogleClientID, s.config.GoogleClientSecret, s.config.GoogleRedirectURI)
}

// handleAuth redirects to the Drive consent page, requesting offline access
// so a refresh token is issued.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if s.config.GoogleClientID == "" {
		http.Error(w, "Drive authorization not configured", http.StatusNotImplemented)
		return
	}

	state := generateRandomHex(32)
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	url := s.driveOAuthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusFound)
}

// handleOAuthCallback trades the authorization code for a token pair and
// persists it.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		http.Error(w, "Drive authorization not configured", http.StatusNotImplemented)
		return
	}
	if err := s.validateOAuthState(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := s.driveOAuthConfig().Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.logger.Error("oauth exchange", "error", err)
		http.Error(w, "OAuth error", http.StatusBadRequest)
		return
	}
	if err := s.tokens.Save(token); err != nil {
		s.logger.Error("persist token", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Authorization complete. The service can now upload report photos to Drive."))
}

func (s *Server) validateOAuthState(r *http.Request) error {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		return fmt.Errorf("missing OAuth state cookie")
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		return fmt.Errorf("OAuth state mismatch")
	}
	return nil
}

// generateRandomHex creates a random hex-encoded string for OAuth state.
func generateRandomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}
