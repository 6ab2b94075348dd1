package handlers

import (
	"net/http"

	"fernpost/internal/engine/actors"
	"fernpost/internal/middleware"
	"fernpost/internal/utils"

	"github.com/google/uuid"
)

// HandleAddComment attaches a comment to a post and returns to the post
// view, where the new comment shows up at the bottom of the thread.
func (s *Server) HandleAddComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			middleware.RedirectToLogin(w, r)
			return
		}

		username := r.PathValue("username")
		postID, err := uuid.Parse(r.PathValue("post_id"))
		if err != nil {
			s.renderNotFound(w, r)
			return
		}

		if err := r.ParseForm(); err != nil {
			s.renderFormError(w, "text", "Malformed form submission")
			return
		}

		result, askErr := s.ask(s.Engine.GetCommentActor(), &actors.AddCommentMsg{
			Username: username,
			PostID:   postID,
			AuthorID: userID,
			Text:     r.FormValue("text"),
		})
		if askErr != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("CommentActor"))
			return
		}
		if appErr, ok := result.(*utils.AppError); ok {
			s.renderAppError(w, r, appErr)
			return
		}

		http.Redirect(w, r, "/"+username+"/"+postID.String()+"/", http.StatusFound)
	}
}
