package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"fernpost/internal/engine/actors"
	"fernpost/internal/middleware"
	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/google/uuid"
)

// maxUploadBytes bounds the multipart form buffer for image uploads.
const maxUploadBytes = 10 << 20

// postForm is the parsed create/edit submission. Image is nil when no file
// was attached.
type postForm struct {
	Text      string
	GroupSlug string
	ImagePath *string
}

// parsePostForm reads a post submission, storing and validating the attached
// image if one is present.
func (s *Server) parsePostForm(r *http.Request) (*postForm, *utils.AppError) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "Malformed form submission", err)
	}

	form := &postForm{
		Text:      r.FormValue("text"),
		GroupSlug: r.FormValue("group"),
	}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			path, saveErr := s.Media.Save(header.Filename, file)
			if saveErr != nil {
				return nil, asAppError(saveErr)
			}
			form.ImagePath = &path
		}
	}

	return form, nil
}

func asAppError(err error) *utils.AppError {
	if appErr, ok := err.(*utils.AppError); ok {
		return appErr
	}
	return utils.NewAppError(utils.ErrDatabase, "Storage failure", err)
}

// listingFromResult unwraps an actor reply into a PostListing.
func listingFromResult(result interface{}, err error) (*actors.PostListing, *utils.AppError) {
	if err != nil {
		return nil, utils.NewActorTimeoutError("PostActor")
	}
	switch v := result.(type) {
	case *actors.PostListing:
		return v, nil
	case *actors.GroupListing:
		return &v.PostListing, nil
	case *actors.AuthorListing:
		return &v.PostListing, nil
	case *utils.AppError:
		return nil, v
	default:
		return nil, utils.NewAppError(utils.ErrDatabase, "Unexpected actor response", nil)
	}
}

// HandleIndex serves the paginated global listing. Rendered pages are kept
// in the page cache until they expire or an administrator clears them.
func (s *Server) HandleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawPage := r.URL.Query().Get("page")
		cacheKey := "index?page=" + rawPage

		if payload, ok := s.IndexCache.Get(cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}

		listing, page, appErr := s.fetchListing(rawPage, func(limit, offset int) (*actors.PostListing, *utils.AppError) {
			return listingFromResult(s.ask(s.Engine.GetPostActor(), &actors.ListPostsMsg{Limit: limit, Offset: offset}))
		})
		if appErr != nil {
			s.renderAppError(w, r, appErr)
			return
		}

		context := map[string]interface{}{
			"page":      listing.Posts,
			"paginator": page,
		}
		payload, err := json.Marshal(context)
		if err != nil {
			s.renderContext(w, http.StatusInternalServerError, map[string]interface{}{"error": "Failed to render page"})
			return
		}
		s.IndexCache.Set(cacheKey, payload)

		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	}
}

// HandleGroupPosts serves a group's paginated listing; unknown slugs 404.
func (s *Server) HandleGroupPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")

		var group *models.Group
		listing, page, appErr := s.fetchListing(r.URL.Query().Get("page"), func(limit, offset int) (*actors.PostListing, *utils.AppError) {
			result, err := s.ask(s.Engine.GetPostActor(), &actors.ListGroupPostsMsg{Slug: slug, Limit: limit, Offset: offset})
			if gl, ok := result.(*actors.GroupListing); ok {
				group = gl.Group
			}
			return listingFromResult(result, err)
		})
		if appErr != nil {
			s.renderAppError(w, r, appErr)
			return
		}

		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"group":     group,
			"page":      listing.Posts,
			"paginator": page,
		})
	}
}

// listGroups fetches the group choices shown on the post form.
func (s *Server) listGroups() []*models.Group {
	result, err := s.ask(s.Engine.GetPostActor(), &actors.ListGroupsMsg{})
	if err != nil {
		return nil
	}
	groups, _ := result.([]*models.Group)
	return groups
}

// HandleNewPostForm serves the empty creation form context.
func (s *Server) HandleNewPostForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"form":   map[string]interface{}{},
			"groups": s.listGroups(),
		})
	}
}

// HandleCreatePost persists a new post owned by the authenticated user and
// redirects to the index listing.
func (s *Server) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			middleware.RedirectToLogin(w, r)
			return
		}

		form, appErr := s.parsePostForm(r)
		if appErr != nil {
			s.renderAppError(w, r, appErr)
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.CreatePostMsg{
			AuthorID:  userID,
			Text:      form.Text,
			GroupSlug: form.GroupSlug,
			ImagePath: form.ImagePath,
		})
		if err != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("PostActor"))
			return
		}

		if appErr, ok := result.(*utils.AppError); ok {
			s.renderAppError(w, r, appErr)
			return
		}

		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// HandlePostDetail serves one post plus its comments, oldest-first.
func (s *Server) HandlePostDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.PathValue("username")
		postID, err := uuid.Parse(r.PathValue("post_id"))
		if err != nil {
			s.renderNotFound(w, r)
			return
		}

		result, askErr := s.ask(s.Engine.GetPostActor(), &actors.GetPostMsg{Username: username, PostID: postID})
		if askErr != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("PostActor"))
			return
		}
		if appErr, ok := result.(*utils.AppError); ok {
			s.renderAppError(w, r, appErr)
			return
		}
		post := result.(*models.Post)

		commentsResult, askErr := s.ask(s.Engine.GetCommentActor(), &actors.GetPostCommentsMsg{Username: username, PostID: postID})
		if askErr != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("CommentActor"))
			return
		}
		if appErr, ok := commentsResult.(*utils.AppError); ok {
			s.renderAppError(w, r, appErr)
			return
		}
		comments, _ := commentsResult.([]*models.Comment)

		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"author":   post.AuthorUsername,
			"post":     post,
			"comments": comments,
			"form":     map[string]interface{}{},
		})
	}
}

// HandleEditPost covers both the edit form (GET) and the submission (POST).
// A request by anyone but the author redirects to the post view without
// modifying anything; no error is raised.
func (s *Server) HandleEditPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.PathValue("username")
		postID, err := uuid.Parse(r.PathValue("post_id"))
		if err != nil {
			s.renderNotFound(w, r)
			return
		}
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			middleware.RedirectToLogin(w, r)
			return
		}

		postURL := "/" + username + "/" + postID.String() + "/"

		if r.Method == http.MethodGet {
			result, askErr := s.ask(s.Engine.GetPostActor(), &actors.GetPostMsg{Username: username, PostID: postID})
			if askErr != nil {
				s.renderAppError(w, r, utils.NewActorTimeoutError("PostActor"))
				return
			}
			if appErr, ok := result.(*utils.AppError); ok {
				s.renderAppError(w, r, appErr)
				return
			}
			post := result.(*models.Post)

			if post.AuthorID != userID {
				http.Redirect(w, r, postURL, http.StatusFound)
				return
			}

			s.renderContext(w, http.StatusOK, map[string]interface{}{
				"form": map[string]interface{}{
					"text":  post.Text,
					"group": post.GroupSlug,
				},
				"post":   post,
				"groups": s.listGroups(),
			})
			return
		}

		// Scope the lookup to the username in the route first so a
		// mismatched author/id pair stays a 404, and settle ownership
		// before the form is even parsed: a non-author submission must
		// redirect untouched, not fail validation or store its upload.
		scoped, askErr := s.ask(s.Engine.GetPostActor(), &actors.GetPostMsg{Username: username, PostID: postID})
		if askErr != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("PostActor"))
			return
		}
		if appErr, ok := scoped.(*utils.AppError); ok {
			s.renderAppError(w, r, appErr)
			return
		}
		if post := scoped.(*models.Post); post.AuthorID != userID {
			http.Redirect(w, r, postURL, http.StatusFound)
			return
		}

		form, appErr := s.parsePostForm(r)
		if appErr != nil {
			s.renderAppError(w, r, appErr)
			return
		}

		result, askErr := s.ask(s.Engine.GetPostActor(), &actors.EditPostMsg{
			PostID:    postID,
			ActorID:   userID,
			Text:      form.Text,
			GroupSlug: form.GroupSlug,
			ImagePath: form.ImagePath,
		})
		if askErr != nil {
			s.renderAppError(w, r, utils.NewActorTimeoutError("PostActor"))
			return
		}

		switch v := result.(type) {
		case *actors.NotPostAuthor:
			http.Redirect(w, r, postURL, http.StatusFound)
		case *utils.AppError:
			s.renderAppError(w, r, v)
		case *models.Post:
			http.Redirect(w, r, postURL, http.StatusFound)
		default:
			s.renderContext(w, http.StatusInternalServerError, map[string]interface{}{"error": "Unexpected actor response"})
		}
	}
}
