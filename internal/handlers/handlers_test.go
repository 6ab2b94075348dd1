package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fernpost/internal/cache"
	"fernpost/internal/database"
	"fernpost/internal/engine"
	"fernpost/internal/media"
	"fernpost/internal/middleware"
	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ts     *httptest.Server
	client *http.Client
	db     *database.MemoryDB
	server *Server
}

// newTestEnv wires the full stack over the in-memory adapter. The client
// never follows redirects so tests can assert on them directly.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, metrics, db)

	mediaStore, err := media.NewStore(t.TempDir())
	require.NoError(t, err)

	auth := middleware.NewAuthenticator("test-secret", time.Hour)
	indexCache := cache.NewPageCache(time.Minute)

	server := NewServer(system, eng, metrics, auth, mediaStore, indexCache)
	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{ts: ts, client: client, db: db, server: server}
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) postForm(t *testing.T, path, token string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// signup registers and logs a user in, returning the bearer token.
func (e *testEnv) signup(t *testing.T, username string) string {
	t.Helper()

	resp := e.postForm(t, "/auth/signup/", "", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {"password123"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = e.postForm(t, "/auth/login/", "", url.Values{
		"email":    {username + "@example.com"},
		"password": {"password123"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) seedGroup(t *testing.T, slug, title string) {
	t.Helper()
	require.NoError(t, e.db.CreateGroup(context.Background(), &models.Group{
		ID:    uuid.New(),
		Title: title,
		Slug:  slug,
	}))
}

// pagePosts pulls the "page" slice out of a listing response body.
func pagePosts(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	posts, ok := body["page"].([]interface{})
	require.True(t, ok, "missing page in %v", body)
	return posts
}

func postText(t *testing.T, entry interface{}) string {
	t.Helper()
	m, ok := entry.(map[string]interface{})
	require.True(t, ok)
	text, _ := m["text"].(string)
	return text
}

func TestCreatePostAppearsEverywhere(t *testing.T) {
	env := newTestEnv(t)
	env.seedGroup(t, "test_group", "Test group")
	token := env.signup(t, "m_smith")

	resp := env.postForm(t, "/new/", token, url.Values{
		"text":  {"Testtext_testtext."},
		"group": {"test_group"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()

	for _, path := range []string{"/", "/group/test_group/", "/m_smith/"} {
		resp = env.get(t, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		body := decodeBody(t, resp)
		posts := pagePosts(t, body)
		require.Len(t, posts, 1, path)
		assert.Equal(t, "Testtext_testtext.", postText(t, posts[0]))
	}

	// The profile carries the author's post count
	resp = env.get(t, "/m_smith/", "")
	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["post_count"])

	// And the post view serves the single post
	post := pagePosts(t, mustListing(t, env))[0].(map[string]interface{})
	postID := post["id"].(string)
	resp = env.get(t, "/m_smith/"+postID+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeBody(t, resp)
	assert.Equal(t, "m_smith", detail["author"])
}

// mustListing drops the page cache and fetches the current index listing.
func mustListing(t *testing.T, env *testEnv) map[string]interface{} {
	t.Helper()
	env.server.IndexCache.Clear()
	resp := env.get(t, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody(t, resp)
}

func TestUnauthenticatedWritesRedirectToLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/new/", "", url.Values{"text": {"should not land"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next=%2Fnew%2F", resp.Header.Get("Location"))
	resp.Body.Close()

	count, err := env.db.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Protected reads bounce too
	resp = env.get(t, "/follow/", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), middleware.LoginPath)
	resp.Body.Close()
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t)
	authorToken := env.signup(t, "author")
	otherToken := env.signup(t, "other")

	resp := env.postForm(t, "/new/", authorToken, url.Values{"text": {"original"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	post := pagePosts(t, mustListing(t, env))[0].(map[string]interface{})
	postID := post["id"].(string)
	editPath := "/author/" + postID + "/edit/"
	viewPath := "/author/" + postID + "/"

	// Someone else's edit silently lands back on the post
	resp = env.postForm(t, editPath, otherToken, url.Values{"text": {"hijacked"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, viewPath, resp.Header.Get("Location"))
	resp.Body.Close()

	unchanged, err := env.db.GetPostByID(context.Background(), uuid.MustParse(postID))
	require.NoError(t, err)
	assert.Equal(t, "original", unchanged.Text)

	// Their edit form request bounces the same way
	resp = env.get(t, editPath, otherToken)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, viewPath, resp.Header.Get("Location"))
	resp.Body.Close()

	// A non-author submission carrying a junk upload bounces silently too;
	// ownership settles before the form is ever validated
	resp = env.postMultipart(t, editPath, otherToken, "hijacked again", "notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, viewPath, resp.Header.Get("Location"))
	resp.Body.Close()

	stillUnchanged, err := env.db.GetPostByID(context.Background(), uuid.MustParse(postID))
	require.NoError(t, err)
	assert.Equal(t, "original", stillUnchanged.Text)

	// Editing a missing post 404s regardless of the payload
	resp = env.postMultipart(t, "/author/"+uuid.New().String()+"/edit/", authorToken, "x", "notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// The author's edit goes through, keeping identity and timestamp
	resp = env.postForm(t, editPath, authorToken, url.Values{"text": {"revised"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, viewPath, resp.Header.Get("Location"))
	resp.Body.Close()

	edited, err := env.db.GetPostByID(context.Background(), uuid.MustParse(postID))
	require.NoError(t, err)
	assert.Equal(t, "revised", edited.Text)
	assert.Equal(t, unchanged.CreatedAt, edited.CreatedAt)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	authorToken := env.signup(t, "author")
	commenterToken := env.signup(t, "commenter")

	resp := env.postForm(t, "/new/", authorToken, url.Values{"text": {"a post"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	post := pagePosts(t, mustListing(t, env))[0].(map[string]interface{})
	postID := post["id"].(string)
	commentPath := "/author/" + postID + "/comment/"

	// Anonymous commenting bounces to login
	resp = env.postForm(t, commentPath, "", url.Values{"text": {"anon"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), middleware.LoginPath)
	resp.Body.Close()

	// An authenticated comment lands on the post view
	resp = env.postForm(t, commentPath, commenterToken, url.Values{"text": {"nice one"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/author/"+postID+"/", resp.Header.Get("Location"))
	resp.Body.Close()

	resp = env.get(t, "/author/"+postID+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeBody(t, resp)
	comments := detail["comments"].([]interface{})
	require.Len(t, comments, 1)
	comment := comments[0].(map[string]interface{})
	assert.Equal(t, "nice one", comment["text"])
	assert.Equal(t, "commenter", comment["authorUsername"])
}

func TestFollowFlow(t *testing.T) {
	env := newTestEnv(t)
	readerToken := env.signup(t, "reader")
	writerToken := env.signup(t, "writer")

	resp := env.postForm(t, "/new/", writerToken, url.Values{"text": {"from writer"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	// Empty feed before following
	resp = env.get(t, "/follow/", readerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, pagePosts(t, decodeBody(t, resp)), 0)

	// Follow twice; both land on the profile
	for i := 0; i < 2; i++ {
		resp = env.get(t, "/writer/follow/", readerToken)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/writer/", resp.Header.Get("Location"))
		resp.Body.Close()
	}

	resp = env.get(t, "/follow/", readerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := pagePosts(t, decodeBody(t, resp))
	require.Len(t, posts, 1)
	assert.Equal(t, "from writer", postText(t, posts[0]))

	// The profile reports the relation to the viewer
	resp = env.get(t, "/writer/", readerToken)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["following"])

	// Anonymous viewers get no relation at all
	resp = env.get(t, "/writer/", "")
	body = decodeBody(t, resp)
	assert.Nil(t, body["following"])

	// Unfollow twice; the feed empties and stays consistent
	for i := 0; i < 2; i++ {
		resp = env.get(t, "/writer/unfollow/", readerToken)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		resp.Body.Close()
	}
	resp = env.get(t, "/follow/", readerToken)
	assert.Len(t, pagePosts(t, decodeBody(t, resp)), 0)
}

func (e *testEnv) postMultipart(t *testing.T, path, token, text string, filename string, file []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", text))
	if file != nil {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageUpload(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "poster")

	// A text file posing as an image is rejected with the fixed message
	resp := env.postMultipart(t, "/new/", token, "with fake image", "notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	form := body["form"].(map[string]interface{})
	errors := form["errors"].(map[string]interface{})
	assert.Equal(t, media.ErrNotAnImage, errors["image"])

	count, err := env.db.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// A real PNG goes through and the stored file is served under /media/
	resp = env.postMultipart(t, "/new/", token, "with image", "pic.png", pngBytes(t))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	post := pagePosts(t, mustListing(t, env))[0].(map[string]interface{})
	imagePath, _ := post["imagePath"].(string)
	require.NotEmpty(t, imagePath)

	resp = env.get(t, "/media/"+imagePath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), served)
}

func TestPaginationClamping(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "prolific")

	for i := 0; i < 11; i++ {
		resp := env.postForm(t, "/new/", token, url.Values{"text": {fmt.Sprintf("post %d", i)}})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		resp.Body.Close()
	}

	env.server.IndexCache.Clear()

	// Page 2 carries the single overflow post
	resp := env.get(t, "/?page=2", "")
	body := decodeBody(t, resp)
	assert.Len(t, pagePosts(t, body), 1)
	paginator := body["paginator"].(map[string]interface{})
	assert.Equal(t, float64(2), paginator["number"])
	assert.Equal(t, float64(11), paginator["count"])

	// Overflow clamps to the last page, garbage clamps to the first
	resp = env.get(t, "/?page=99", "")
	body = decodeBody(t, resp)
	assert.Len(t, pagePosts(t, body), 1)
	assert.Equal(t, float64(2), body["paginator"].(map[string]interface{})["number"])

	resp = env.get(t, "/?page=banana", "")
	body = decodeBody(t, resp)
	assert.Len(t, pagePosts(t, body), 10)
	assert.Equal(t, float64(1), body["paginator"].(map[string]interface{})["number"])
}

func TestIndexCacheAndClear(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "writer")

	// Prime the cache with an empty index
	resp := env.get(t, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, pagePosts(t, decodeBody(t, resp)), 0)

	resp = env.postForm(t, "/new/", token, url.Values{"text": {"fresh"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	// The cached page still serves the stale listing
	resp = env.get(t, "/", "")
	assert.Len(t, pagePosts(t, decodeBody(t, resp)), 0)

	// Clearing the cache makes the new post visible immediately
	resp = env.postForm(t, "/admin/cache/clear", token, url.Values{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.get(t, "/", "")
	posts := pagePosts(t, decodeBody(t, resp))
	require.Len(t, posts, 1)
	assert.Equal(t, "fresh", postText(t, posts[0]))
}

func TestOverlappingRouteShapes(t *testing.T) {
	// Building the env registers the full route table; a pattern conflict
	// would panic right here.
	env := newTestEnv(t)
	token := env.signup(t, "reader")

	// /group/follow/ is a group lookup, never a follow action
	resp := env.get(t, "/group/follow/", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// /media/ paths go to the file store, not the /{username}/ wildcards
	resp = env.get(t, "/media/missing.png", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// And real group pages still resolve ahead of the username wildcards
	env.seedGroup(t, "books", "Books")
	resp = env.get(t, "/group/books/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestNotFoundPage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/nobody/", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "/nobody/", body["path"])

	resp = env.get(t, "/group/missing/", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["posts"])

	resp = env.get(t, "/metrics/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	metrics := decodeBody(t, resp)
	assert.Contains(t, metrics, "operations")
	assert.Contains(t, metrics, "requests")
}
