package handlers

import (
	"net/http"

	"fernpost/internal/engine/actors"
	"fernpost/internal/middleware"
	"fernpost/internal/models"
	"fernpost/internal/utils"
)

// HandleProfile serves an author's page: their paginated posts, post count,
// and whether the viewer follows them. "following" stays null for anonymous
// viewers so the page can omit the follow controls entirely.
func (s *Server) HandleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.PathValue("username")

		var author *models.User
		listing, page, appErr := s.fetchListing(r.URL.Query().Get("page"), func(limit, offset int) (*actors.PostListing, *utils.AppError) {
			result, err := s.ask(s.Engine.GetPostActor(), &actors.ListAuthorPostsMsg{Username: username, Limit: limit, Offset: offset})
			if al, ok := result.(*actors.AuthorListing); ok {
				author = al.Author
			}
			return listingFromResult(result, err)
		})
		if appErr != nil {
			s.renderAppError(w, r, appErr)
			return
		}

		var following interface{}
		if viewerID, ok := middleware.GetUserIDFromContext(r.Context()); ok && author != nil {
			result, err := s.ask(s.Engine.GetFollowActor(), &actors.IsFollowingMsg{UserID: viewerID, AuthorID: author.ID})
			if err == nil {
				if isFollowing, ok := result.(bool); ok {
					following = isFollowing
				}
			}
		}

		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"author":     author,
			"page":       listing.Posts,
			"paginator":  page,
			"post_count": listing.Total,
			"following":  following,
		})
	}
}
