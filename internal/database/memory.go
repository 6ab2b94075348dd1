// internal/database/memory.go
package database

import (
	"context"
	"sort"
	"sync"

	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/google/uuid"
)

// MemoryDB keeps everything in process. It backs tests and the
// db.type=memory dev mode, and mirrors the relational invariants by hand:
// unique usernames/emails/slugs, one follow row per (user, author) pair,
// newest-first posts and oldest-first comments.
type MemoryDB struct {
	mu sync.RWMutex

	users    map[uuid.UUID]*models.User
	groups   map[uuid.UUID]*models.Group
	posts    map[uuid.UUID]*models.Post
	comments map[uuid.UUID]*models.Comment
	follows  map[uuid.UUID]map[uuid.UUID]bool // user -> set of followed authors

	// Insertion sequence breaks creation-time ties deterministically.
	postSeq    map[uuid.UUID]int
	commentSeq map[uuid.UUID]int
	nextSeq    int
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:      make(map[uuid.UUID]*models.User),
		groups:     make(map[uuid.UUID]*models.Group),
		posts:      make(map[uuid.UUID]*models.Post),
		comments:   make(map[uuid.UUID]*models.Comment),
		follows:    make(map[uuid.UUID]map[uuid.UUID]bool),
		postSeq:    make(map[uuid.UUID]int),
		commentSeq: make(map[uuid.UUID]int),
	}
}

func (m *MemoryDB) Close(ctx context.Context) error {
	return nil
}

// --- User methods ---

func (m *MemoryDB) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return utils.NewAppError(utils.ErrUserAlreadyExists, "Username or email already registered", nil)
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MemoryDB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
}

func (m *MemoryDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, utils.NewUserNotFoundError(username)
}

func (m *MemoryDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
}

// --- Group methods ---

func (m *MemoryDB) CreateGroup(ctx context.Context, group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range m.groups {
		if g.Title == group.Title || g.Slug == group.Slug {
			return utils.NewAppError(utils.ErrDuplicate, "Group title or slug already exists", nil)
		}
	}
	copied := *group
	m.groups[group.ID] = &copied
	return nil
}

func (m *MemoryDB) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, group := range m.groups {
		if group.Slug == slug {
			copied := *group
			return &copied, nil
		}
	}
	return nil, utils.NewGroupNotFoundError(slug)
}

func (m *MemoryDB) ListGroups(ctx context.Context) ([]*models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := make([]*models.Group, 0, len(m.groups))
	for _, group := range m.groups {
		copied := *group
		groups = append(groups, &copied)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

func (m *MemoryDB) CountGroups(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups), nil
}

// --- Post methods ---

// decorate fills the denormalized username and group slug the way the SQL
// adapter's joins do.
func (m *MemoryDB) decorate(post *models.Post) *models.Post {
	copied := *post
	if author, ok := m.users[post.AuthorID]; ok {
		copied.AuthorUsername = author.Username
	}
	if post.GroupID != nil {
		if group, ok := m.groups[*post.GroupID]; ok {
			slug := group.Slug
			copied.GroupSlug = &slug
		}
	}
	return &copied
}

func (m *MemoryDB) SavePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[post.AuthorID]; !ok {
		return utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
	}
	copied := *post
	m.posts[post.ID] = &copied
	m.nextSeq++
	m.postSeq[post.ID] = m.nextSeq
	return nil
}

func (m *MemoryDB) UpdatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.posts[post.ID]
	if !ok {
		return utils.NewPostNotFoundError()
	}
	existing.Text = post.Text
	existing.GroupID = post.GroupID
	existing.ImagePath = post.ImagePath
	return nil
}

func (m *MemoryDB) GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if post, ok := m.posts[id]; ok {
		return m.decorate(post), nil
	}
	return nil, utils.NewPostNotFoundError()
}

func (m *MemoryDB) listPosts(match func(*models.Post) bool, limit, offset int) ([]*models.Post, int) {
	matched := []*models.Post{}
	for _, post := range m.posts {
		if match(post) {
			matched = append(matched, post)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return m.postSeq[matched[i].ID] > m.postSeq[matched[j].ID]
	})

	total := len(matched)
	if offset >= total {
		return []*models.Post{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*models.Post, 0, end-offset)
	for _, post := range matched[offset:end] {
		page = append(page, m.decorate(post))
	}
	return page, total
}

func (m *MemoryDB) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts, total := m.listPosts(func(*models.Post) bool { return true }, limit, offset)
	return posts, total, nil
}

func (m *MemoryDB) ListGroupPosts(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts, total := m.listPosts(func(p *models.Post) bool {
		return p.GroupID != nil && *p.GroupID == groupID
	}, limit, offset)
	return posts, total, nil
}

func (m *MemoryDB) ListAuthorPosts(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts, total := m.listPosts(func(p *models.Post) bool {
		return p.AuthorID == authorID
	}, limit, offset)
	return posts, total, nil
}

func (m *MemoryDB) ListFeedPosts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	followed := m.follows[userID]
	posts, total := m.listPosts(func(p *models.Post) bool {
		return followed[p.AuthorID]
	}, limit, offset)
	return posts, total, nil
}

func (m *MemoryDB) CountPosts(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.posts), nil
}

// --- Comment methods ---

func (m *MemoryDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[comment.PostID]; !ok {
		return utils.NewPostNotFoundError()
	}
	copied := *comment
	m.comments[comment.ID] = &copied
	m.nextSeq++
	m.commentSeq[comment.ID] = m.nextSeq
	return nil
}

func (m *MemoryDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comments := []*models.Comment{}
	for _, comment := range m.comments {
		if comment.PostID != postID {
			continue
		}
		copied := *comment
		if author, ok := m.users[comment.AuthorID]; ok {
			copied.AuthorUsername = author.Username
		}
		comments = append(comments, &copied)
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return m.commentSeq[comments[i].ID] < m.commentSeq[comments[j].ID]
	})
	return comments, nil
}

// --- Follow methods ---

func (m *MemoryDB) CreateFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.follows[userID] == nil {
		m.follows[userID] = make(map[uuid.UUID]bool)
	}
	m.follows[userID][authorID] = true
	return nil
}

func (m *MemoryDB) DeleteFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.follows[userID], authorID)
	return nil
}

func (m *MemoryDB) FollowExists(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.follows[userID][authorID], nil
}

// FollowCount reports the number of follow rows for one user; tests use it
// to assert follow/unfollow round trips leave no residue.
func (m *MemoryDB) FollowCount(userID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.follows[userID])
}
