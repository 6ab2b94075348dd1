package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"fernpost/internal/cache"
	"fernpost/internal/engine"
	"fernpost/internal/engine/actors"
	"fernpost/internal/media"
	"fernpost/internal/middleware"
	"fernpost/internal/pagination"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	Auth           *middleware.Authenticator
	Media          *media.Store
	IndexCache     *cache.PageCache
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	metrics *utils.MetricsCollector,
	auth *middleware.Authenticator,
	mediaStore *media.Store,
	indexCache *cache.PageCache,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Metrics:        metrics,
		Auth:           auth,
		Media:          mediaStore,
		IndexCache:     indexCache,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// Routes builds the full route table. Go's pattern precedence keeps the
// literal routes (/new/, /follow/, /auth/...) ahead of the /{username}/
// wildcards that share their shape. Two shapes the mux cannot rank are
// dispatched by hand: the /media/ subtree (a prefix pattern that overlaps
// the username wildcards) is peeled off before the mux, and the
// /{username}/follow/ and /{username}/unfollow/ actions share the
// /{username}/{post_id}/ registration so they never collide with
// /group/{slug}/ at paths like /group/follow/.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.HandleIndex())
	mux.HandleFunc("GET /group/{slug}/{$}", s.HandleGroupPosts())
	mux.HandleFunc("GET /new/{$}", s.Auth.RequireAuth(s.HandleNewPostForm()))
	mux.HandleFunc("POST /new/{$}", s.Auth.RequireAuth(s.HandleCreatePost()))
	mux.HandleFunc("GET /follow/{$}", s.Auth.RequireAuth(s.HandleFollowIndex()))

	mux.HandleFunc("POST /auth/signup/{$}", s.HandleUserRegistration())
	mux.HandleFunc("GET /auth/login/{$}", s.HandleLoginForm())
	mux.HandleFunc("POST /auth/login/{$}", s.HandleUserLogin())

	mux.HandleFunc("GET /healthz", s.HandleHealth())
	mux.HandleFunc("GET /metrics/{$}", s.HandleMetrics())
	mux.HandleFunc("POST /admin/cache/clear", s.Auth.RequireAuth(s.HandleCacheClear()))

	mux.HandleFunc("GET /{username}/{$}", s.Auth.Identify(s.HandleProfile()))
	mux.HandleFunc("GET /{username}/{post_id}/{$}", s.handleUserSubpage())
	mux.HandleFunc("GET /{username}/{post_id}/edit/{$}", s.Auth.RequireAuth(s.HandleEditPost()))
	mux.HandleFunc("POST /{username}/{post_id}/edit/{$}", s.Auth.RequireAuth(s.HandleEditPost()))
	mux.HandleFunc("POST /{username}/{post_id}/comment/{$}", s.Auth.RequireAuth(s.HandleAddComment()))

	// Anything that falls through is the 404 page.
	mux.HandleFunc("/", s.HandleNotFound())

	mediaFiles := http.StripPrefix("/media/", http.FileServer(http.Dir(s.Media.Root())))
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/media/") {
			mediaFiles.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	return s.recoverPanics(root)
}

// handleUserSubpage resolves the second path segment under a profile: the
// follow and unfollow actions, or a post id.
func (s *Server) handleUserSubpage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("post_id") {
		case "follow":
			s.Auth.RequireAuth(s.HandleProfileFollow())(w, r)
		case "unfollow":
			s.Auth.RequireAuth(s.HandleProfileUnfollow())(w, r)
		default:
			s.HandlePostDetail()(w, r)
		}
	}
}

// recoverPanics turns handler panics into the generic 500 page.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("Panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				s.Metrics.IncrementErrors()
				s.renderContext(w, http.StatusInternalServerError, map[string]interface{}{
					"error": "Internal server error",
				})
			}
		}()
		s.Metrics.IncrementRequests()
		next.ServeHTTP(w, r)
	})
}

// ask sends msg to an actor and waits for the reply under the shared
// request timeout.
func (s *Server) ask(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	return future.Result()
}

// renderContext writes the context mapping consumed by the rendering stage.
func (s *Server) renderContext(w http.ResponseWriter, status int, context map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(context); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// renderNotFound is the shared 404 page context.
func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderContext(w, http.StatusNotFound, map[string]interface{}{
		"path": r.URL.Path,
	})
}

// renderFormError re-renders a form context with a single field error.
func (s *Server) renderFormError(w http.ResponseWriter, field, message string) {
	s.renderContext(w, http.StatusBadRequest, map[string]interface{}{
		"form": map[string]interface{}{
			"errors": map[string]string{field: message},
		},
	})
}

// renderAppError maps actor-level errors onto the response taxonomy:
// missing resources render the 404 page, field problems re-render the form,
// the rest is a 500.
func (s *Server) renderAppError(w http.ResponseWriter, r *http.Request, appErr *utils.AppError) {
	status := utils.AppErrorToHTTPStatus(appErr.Code)
	switch {
	case status == http.StatusNotFound:
		s.renderNotFound(w, r)
	case appErr.Code == utils.ErrInvalidInput:
		s.renderFormError(w, "text", appErr.Message)
	case appErr.Code == utils.ErrInvalidImage:
		s.renderFormError(w, "image", appErr.Message)
	default:
		s.Metrics.IncrementErrors()
		s.renderContext(w, status, map[string]interface{}{"error": appErr.Message})
	}
}

// HandleNotFound serves the catch-all 404 page.
func (s *Server) HandleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderNotFound(w, r)
	}
}

// fetchListing pages through a post listing: an optimistic fetch with the
// requested page, then one corrective fetch if the paginator clamped the
// page number against the real total.
func (s *Server) fetchListing(rawPage string, fetch func(limit, offset int) (*actors.PostListing, *utils.AppError)) (*actors.PostListing, pagination.Page, *utils.AppError) {
	offset := pagination.RequestedOffset(rawPage)
	listing, appErr := fetch(pagination.PostsPerPage, offset)
	if appErr != nil {
		return nil, pagination.Page{}, appErr
	}

	page := pagination.Resolve(rawPage, listing.Total)
	if page.Offset() != offset {
		listing, appErr = fetch(pagination.PostsPerPage, page.Offset())
		if appErr != nil {
			return nil, pagination.Page{}, appErr
		}
	}
	return listing, page, nil
}
