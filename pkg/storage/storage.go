// Package storage persists and restores the feed store's state. Two
// interchangeable adapters exist: a MongoDB one that maps every store
// operation onto an individual document update, and a local snapshot
// one that rewrites a single JSON blob per mutation. The store's
// contract is the same whichever is wired in.
package storage

import (
	"time"

	"github.com/Theadekanmi/softspace/pkg/feed"
)

type Op string

const (
	OpCreatePost Op = "create_post"
	OpAddComment Op = "add_comment"
	OpAddReply   Op = "add_reply"
	OpEdit       Op = "edit"
	OpDelete     Op = "delete"
	OpLike       Op = "like"
)

// Mutation describes one completed store operation so incremental
// adapters can replay it remotely instead of rewriting the whole tree.
// Likes travel as a signed delta, not an absolute value, so concurrent
// viewers can't overwrite each other's counts.
type Mutation struct {
	Op   Op
	Kind feed.EntityKind

	// Ids locating the touched entity inside the tree.
	PostId    string
	CommentId string
	ReplyId   string

	Post    *feed.Post
	Comment *feed.Comment
	Reply   *feed.Reply

	Content   string
	EditedAt  time.Time
	LikeDelta int
}
