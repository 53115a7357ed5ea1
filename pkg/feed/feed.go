package feed

import (
	"strings"
	"time"
)

// AnonymousAuthor is substituted when a post is created without a
// signed-in viewer or with a blank display name.
const AnonymousAuthor = "Anonymous"

// ArticleMarker prefixes the content of posts that only exist to anchor
// an article-embedded comment thread. Such posts are hidden from the
// main feed.
const ArticleMarker = "Article: "

type EntityKind string

const (
	KindPost    EntityKind = "post"
	KindComment EntityKind = "comment"
	KindReply   EntityKind = "reply"
)

type Post struct {
	Id            string     `json:"id" bson:"id"`
	AuthorId      string     `json:"authorId" bson:"author_id"`
	Author        string     `json:"author" bson:"author_name"`
	Content       string     `json:"content" bson:"content"`
	Created       time.Time  `json:"createdAt" bson:"created_at"`
	Edited        *time.Time `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	LikeCount     int        `json:"likeCount" bson:"likes"`
	LikedByViewer bool       `json:"likedByViewer" bson:"-"`
	Comments      []*Comment `json:"comments" bson:"comments"`
}

// IsArticleAnchor reports whether the post anchors an article thread
// rather than being a regular feed entry.
func (p *Post) IsArticleAnchor() bool {
	return strings.HasPrefix(p.Content, ArticleMarker)
}

type Comment struct {
	Id            string     `json:"id" bson:"id"`
	PostId        string     `json:"postId" bson:"post_id"`
	AuthorId      string     `json:"authorId" bson:"author_id"`
	Author        string     `json:"author" bson:"author_name"`
	Content       string     `json:"content" bson:"content"`
	Created       time.Time  `json:"createdAt" bson:"created_at"`
	Edited        *time.Time `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	LikeCount     int        `json:"likeCount" bson:"likes"`
	LikedByViewer bool       `json:"likedByViewer" bson:"-"`
	Replies       []*Reply   `json:"replies" bson:"replies"`
}

type Reply struct {
	Id            string     `json:"id" bson:"id"`
	PostId        string     `json:"postId" bson:"post_id"`
	CommentId     string     `json:"commentId" bson:"comment_id"`
	AuthorId      string     `json:"authorId" bson:"author_id"`
	Author        string     `json:"author" bson:"author_name"`
	Content       string     `json:"content" bson:"content"`
	Created       time.Time  `json:"createdAt" bson:"created_at"`
	Edited        *time.Time `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	LikeCount     int        `json:"likeCount" bson:"likes"`
	LikedByViewer bool       `json:"likedByViewer" bson:"-"`
}

// LikeState is what a like toggle reports back to the caller.
type LikeState struct {
	LikeCount     int  `json:"likeCount"`
	LikedByViewer bool `json:"likedByViewer"`
}

// Snapshot is the full persistable state of a Store: every post with
// its comments and replies embedded, newest post first.
type Snapshot struct {
	Posts []*Post `json:"posts"`
}

func clonePost(p *Post) *Post {
	cp := *p
	cp.Edited = cloneTime(p.Edited)
	cp.Comments = make([]*Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		cp.Comments = append(cp.Comments, cloneComment(c))
	}
	return &cp
}

func cloneComment(c *Comment) *Comment {
	cc := *c
	cc.Edited = cloneTime(c.Edited)
	cc.Replies = make([]*Reply, 0, len(c.Replies))
	for _, r := range c.Replies {
		cr := *r
		cr.Edited = cloneTime(r.Edited)
		cc.Replies = append(cc.Replies, &cr)
	}
	return &cc
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ct := *t
	return &ct
}

// Clone deep-copies the snapshot so callers can hand it to persistence
// or rendering without aliasing live store state.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Posts: make([]*Post, 0, len(s.Posts))}
	for _, p := range s.Posts {
		out.Posts = append(out.Posts, clonePost(p))
	}
	return out
}
