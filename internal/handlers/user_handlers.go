package handlers

import (
	"net/http"

	"fernpost/internal/engine/actors"
	"fernpost/internal/models"
	"fernpost/internal/utils"
)

// HandleUserRegistration creates an account from the signup form.
func (s *Server) HandleUserRegistration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderFormError(w, "username", "Malformed form submission")
			return
		}

		result, askErr := s.ask(s.Engine.GetUserActor(), &actors.RegisterUserMsg{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		})
		if askErr != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("UserActor"))
			return
		}

		switch v := result.(type) {
		case *utils.AppError:
			if v.Code == utils.ErrUserAlreadyExists || v.Code == utils.ErrDuplicate {
				s.renderFormError(w, "username", "A user with that username or email already exists.")
				return
			}
			s.renderAppError(w, r, v)
		case *models.User:
			s.renderContext(w, http.StatusCreated, map[string]interface{}{
				"user": v,
			})
		default:
			s.renderContext(w, http.StatusInternalServerError, map[string]interface{}{"error": "Unexpected actor response"})
		}
	}
}

// HandleLoginForm serves the login form context, carrying the "next" target
// through so a successful login can bounce back to the protected page.
func (s *Server) HandleLoginForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"form": map[string]interface{}{},
			"next": r.URL.Query().Get("next"),
		})
	}
}

// HandleUserLogin checks the credentials and mints the bearer token the
// client presents on protected routes.
func (s *Server) HandleUserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderFormError(w, "email", "Malformed form submission")
			return
		}

		result, askErr := s.ask(s.Engine.GetUserActor(), &actors.LoginMsg{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		})
		if askErr != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("UserActor"))
			return
		}

		login, ok := result.(*actors.LoginResult)
		if !ok {
			s.renderContext(w, http.StatusInternalServerError, map[string]interface{}{"error": "Unexpected actor response"})
			return
		}
		if !login.Success {
			s.renderFormError(w, "email", "Invalid credentials")
			return
		}

		token, err := s.Auth.GenerateToken(login.UserID)
		if err != nil {
			s.renderContext(w, http.StatusInternalServerError, map[string]interface{}{"error": "Failed to issue token"})
			return
		}

		next := r.FormValue("next")
		if next == "" {
			next = "/"
		}
		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   token,
			"userId":  login.UserID,
			"next":    next,
		})
	}
}
