package feed

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("feed: entity not found")
	ErrEmptyContent    = errors.New("feed: content is empty")
	ErrUnauthenticated = errors.New("feed: viewer is not signed in")
	ErrPersistence     = errors.New("feed: persistence failed")
)

// Store holds the authoritative in-memory tree of posts, comments and
// replies. All operations are synchronous and touch memory only;
// durability is the controller's concern. The store itself is not safe
// for concurrent use: the controller serializes actions the way a UI
// event loop would.
type Store struct {
	posts []*Post
	now   func() time.Time
	newId func() string
}

func NewStore() *Store {
	return &Store{
		posts: []*Post{},
		now:   time.Now,
		newId: uuid.NewString,
	}
}

// CreatePost inserts a new post at the head of the feed (newest first).
// A blank author becomes AnonymousAuthor; blank content is rejected.
func (s *Store) CreatePost(authorId, author, content string) (*Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if strings.TrimSpace(author) == "" {
		author = AnonymousAuthor
	}

	p := &Post{
		Id:       s.newId(),
		AuthorId: authorId,
		Author:   author,
		Content:  content,
		Created:  s.now(),
		Comments: []*Comment{},
	}
	s.posts = append([]*Post{p}, s.posts...)
	return p, nil
}

// CreateComment appends a comment under the given post in chronological
// order.
func (s *Store) CreateComment(postId, authorId, author, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	post := s.findPost(postId)
	if post == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(author) == "" {
		author = AnonymousAuthor
	}

	c := &Comment{
		Id:       s.newId(),
		PostId:   post.Id,
		AuthorId: authorId,
		Author:   author,
		Content:  content,
		Created:  s.now(),
		Replies:  []*Reply{},
	}
	post.Comments = append(post.Comments, c)
	return c, nil
}

// CreateReply appends a reply under the given comment, which must
// resolve under the given post.
func (s *Store) CreateReply(postId, commentId, authorId, author, content string) (*Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	post := s.findPost(postId)
	if post == nil {
		return nil, ErrNotFound
	}
	comment := findComment(post, commentId)
	if comment == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(author) == "" {
		author = AnonymousAuthor
	}

	r := &Reply{
		Id:        s.newId(),
		PostId:    post.Id,
		CommentId: comment.Id,
		AuthorId:  authorId,
		Author:    author,
		Content:   content,
		Created:   s.now(),
	}
	comment.Replies = append(comment.Replies, r)
	return r, nil
}

func (s *Store) EditPost(id, content string) (*Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	p := s.findPost(id)
	if p == nil {
		return nil, ErrNotFound
	}
	p.Content = content
	now := s.now()
	p.Edited = &now
	return p, nil
}

func (s *Store) EditComment(id, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	for _, p := range s.posts {
		if c := findComment(p, id); c != nil {
			c.Content = content
			now := s.now()
			c.Edited = &now
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) EditReply(id, content string) (*Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if r, _ := s.findReply(id); r != nil {
		r.Content = content
		now := s.now()
		r.Edited = &now
		return r, nil
	}
	return nil, ErrNotFound
}

// DeletePost removes the post together with all its comments and their
// replies.
func (s *Store) DeletePost(id string) error {
	for idx, p := range s.posts {
		if p.Id == id {
			s.posts = append(s.posts[:idx], s.posts[idx+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteComment removes the comment and its replies, leaving sibling
// comments untouched.
func (s *Store) DeleteComment(id string) error {
	for _, p := range s.posts {
		for idx, c := range p.Comments {
			if c.Id == id {
				p.Comments = append(p.Comments[:idx], p.Comments[idx+1:]...)
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *Store) DeleteReply(id string) error {
	for _, p := range s.posts {
		for _, c := range p.Comments {
			for idx, r := range c.Replies {
				if r.Id == id {
					c.Replies = append(c.Replies[:idx], c.Replies[idx+1:]...)
					return nil
				}
			}
		}
	}
	return ErrNotFound
}

// ToggleLike flips the viewer's like flag on the entity, moving the
// count by one in the matching direction. Unliking an entity the viewer
// never liked must not drive the count negative: stale double
// submissions from duplicated UI bindings only clear the flag.
func (s *Store) ToggleLike(kind EntityKind, id string) (LikeState, error) {
	count, liked := s.likeFields(kind, id)
	if count == nil {
		return LikeState{}, ErrNotFound
	}

	if *liked {
		*liked = false
		if *count > 0 {
			*count--
		}
	} else {
		*liked = true
		*count++
	}
	return LikeState{LikeCount: *count, LikedByViewer: *liked}, nil
}

func (s *Store) likeFields(kind EntityKind, id string) (*int, *bool) {
	switch kind {
	case KindPost:
		if p := s.findPost(id); p != nil {
			return &p.LikeCount, &p.LikedByViewer
		}
	case KindComment:
		for _, p := range s.posts {
			if c := findComment(p, id); c != nil {
				return &c.LikeCount, &c.LikedByViewer
			}
		}
	case KindReply:
		if r, _ := s.findReply(id); r != nil {
			return &r.LikeCount, &r.LikedByViewer
		}
	}
	return nil, nil
}

// Location places an entity inside the tree: the owning post, and for
// replies the owning comment as well.
type Location struct {
	PostId    string
	CommentId string
	ReplyId   string
	AuthorId  string
}

// Locate resolves an entity id to its position in the tree.
func (s *Store) Locate(kind EntityKind, id string) (Location, error) {
	switch kind {
	case KindPost:
		if p := s.findPost(id); p != nil {
			return Location{PostId: p.Id, AuthorId: p.AuthorId}, nil
		}
	case KindComment:
		for _, p := range s.posts {
			if c := findComment(p, id); c != nil {
				return Location{PostId: p.Id, CommentId: c.Id, AuthorId: c.AuthorId}, nil
			}
		}
	case KindReply:
		if r, _ := s.findReply(id); r != nil {
			return Location{PostId: r.PostId, CommentId: r.CommentId, ReplyId: r.Id, AuthorId: r.AuthorId}, nil
		}
	}
	return Location{}, ErrNotFound
}

// GetPost returns the live post or ErrNotFound.
func (s *Store) GetPost(id string) (*Post, error) {
	if p := s.findPost(id); p != nil {
		return p, nil
	}
	return nil, ErrNotFound
}

// FindOrCreateArticlePost returns the anchor post for an article
// discussion block, creating it on first sight. The anchor carries the
// article marker as content so the main feed can filter it out.
func (s *Store) FindOrCreateArticlePost(title, authorId, author string) (*Post, error) {
	marker := ArticleMarker + strings.TrimSpace(title)
	if marker == ArticleMarker {
		return nil, ErrEmptyContent
	}
	for _, p := range s.posts {
		if p.Content == marker {
			return p, nil
		}
	}
	return s.CreatePost(authorId, author, marker)
}

// Snapshot deep-copies the whole tree for persistence or rendering.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Posts: s.posts}.Clone()
}

// Restore replaces the store contents with the given snapshot. The
// snapshot is cloned so later mutations don't leak back into it.
func (s *Store) Restore(snap Snapshot) {
	cloned := snap.Clone()
	if cloned.Posts == nil {
		cloned.Posts = []*Post{}
	}
	s.posts = cloned.Posts
}

// Counts reports live entity totals, mostly for tests and logging.
func (s *Store) Counts() (posts, comments, replies int) {
	posts = len(s.posts)
	for _, p := range s.posts {
		comments += len(p.Comments)
		for _, c := range p.Comments {
			replies += len(c.Replies)
		}
	}
	return posts, comments, replies
}

func (s *Store) findPost(id string) *Post {
	for _, p := range s.posts {
		if p.Id == id {
			return p
		}
	}
	return nil
}

func findComment(p *Post, id string) *Comment {
	for _, c := range p.Comments {
		if c.Id == id {
			return c
		}
	}
	return nil
}

func (s *Store) findReply(id string) (*Reply, *Comment) {
	for _, p := range s.posts {
		for _, c := range p.Comments {
			for _, r := range c.Replies {
				if r.Id == id {
					return r, c
				}
			}
		}
	}
	return nil, nil
}
