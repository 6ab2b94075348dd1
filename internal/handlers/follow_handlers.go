package handlers

import (
	"net/http"

	"fernpost/internal/engine/actors"
	"fernpost/internal/middleware"
	"fernpost/internal/utils"
)

// HandleFollowIndex serves the personalized feed: posts by the authors the
// authenticated user follows, newest first.
func (s *Server) HandleFollowIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			middleware.RedirectToLogin(w, r)
			return
		}

		listing, page, appErr := s.fetchListing(r.URL.Query().Get("page"), func(limit, offset int) (*actors.PostListing, *utils.AppError) {
			return listingFromResult(s.ask(s.Engine.GetFollowActor(), &actors.FeedMsg{UserID: userID, Limit: limit, Offset: offset}))
		})
		if appErr != nil {
			s.renderAppError(w, r, appErr)
			return
		}

		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"page":      listing.Posts,
			"paginator": page,
		})
	}
}

// HandleProfileFollow subscribes the viewer to an author and returns to the
// profile. Following yourself or following twice changes nothing.
func (s *Server) HandleProfileFollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.handleFollowChange(w, r, true)
	}
}

// HandleProfileUnfollow removes the subscription and returns to the profile.
// Unfollowing someone you never followed changes nothing.
func (s *Server) HandleProfileUnfollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.handleFollowChange(w, r, false)
	}
}

func (s *Server) handleFollowChange(w http.ResponseWriter, r *http.Request, follow bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		middleware.RedirectToLogin(w, r)
		return
	}
	username := r.PathValue("username")

	var msg interface{}
	if follow {
		msg = &actors.FollowMsg{UserID: userID, TargetUsername: username}
	} else {
		msg = &actors.UnfollowMsg{UserID: userID, TargetUsername: username}
	}

	result, err := s.ask(s.Engine.GetFollowActor(), msg)
	if err != nil {
		s.renderAppError(w, r, utils.NewActorTimeoutError("FollowActor"))
		return
	}
	if appErr, ok := result.(*utils.AppError); ok {
		s.renderAppError(w, r, appErr)
		return
	}

	http.Redirect(w, r, "/"+username+"/", http.StatusFound)
}
