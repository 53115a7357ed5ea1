// Package controller turns discrete user actions into the
// mutate-save-render pipeline: the store changes in memory, the
// persistence adapter is awaited, and only then is the page
// re-rendered, so the displayed state never promises a durability
// outcome that later fails.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Theadekanmi/softspace/pkg/feed"
	"github.com/Theadekanmi/softspace/pkg/logger"
	"github.com/Theadekanmi/softspace/pkg/render"
	"github.com/Theadekanmi/softspace/pkg/storage"
)

// ErrDuplicate signals that an identical action is already in flight.
// The in-flight guard is the server-side equivalent of disabling the
// triggering control, so a double click can't double-post.
var ErrDuplicate = errors.New("controller: identical action already in progress")

// Adapter persists and restores feed snapshots.
type Adapter interface {
	Load(ctx context.Context) (feed.Snapshot, error)
	Save(ctx context.Context, snap feed.Snapshot) error
}

// Incremental adapters replay single mutations instead of rewriting
// the whole snapshot. The remote variant implements this.
type Incremental interface {
	Apply(ctx context.Context, m storage.Mutation) error
}

// Mode tracks which single entity a viewer is editing or replying to.
// At most one mode is active per viewer; starting another replaces it.
type Mode struct {
	Kind    feed.EntityKind `json:"kind,omitempty"`
	Id      string          `json:"id,omitempty"`
	Compose bool            `json:"compose,omitempty"` // compose-reply rather than edit
}

func (m Mode) Active() bool { return m.Id != "" }

// Result is what every action hands back to the transport layer: the
// freshly rendered page and, when the durable save failed, a
// user-dismissable notice. The in-memory state is already mutated
// either way; there is no rollback.
type Result struct {
	Page   render.Page `json:"page"`
	Notice string      `json:"notice,omitempty"`
	Mode   Mode        `json:"mode,omitempty"`
}

const saveFailedNotice = "Your change could not be saved durably. It remains visible for this session."

type Controller struct {
	store    *feed.Store
	adapter  Adapter
	renderer *render.Renderer

	saveTimeout time.Duration
	now         func() time.Time

	mu    sync.Mutex // serializes actions, UI event-loop style
	modes map[string]Mode

	pendingMu sync.Mutex
	pending   map[string]bool
}

func New(store *feed.Store, adapter Adapter, renderer *render.Renderer, saveTimeout time.Duration) *Controller {
	if saveTimeout <= 0 {
		saveTimeout = 10 * time.Second
	}
	return &Controller{
		store:       store,
		adapter:     adapter,
		renderer:    renderer,
		saveTimeout: saveTimeout,
		now:         time.Now,
		modes:       map[string]Mode{},
		pending:     map[string]bool{},
	}
}

// Start restores the store from the adapter. A failed or corrupt load
// degrades to an empty feed instead of blocking startup.
func (c *Controller) Start(ctx context.Context) {
	snap, err := c.adapter.Load(ctx)
	if err != nil {
		logger.Log(ctx).Warnf("controller: load failed, starting empty: %v", err)
		snap = feed.Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Restore(snap)
}

// Refresh re-renders the current state without mutating anything.
func (c *Controller) Refresh(viewer render.Viewer) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result(viewer, "")
}

func (c *Controller) CreatePost(ctx context.Context, viewer render.Viewer, content string) (Result, error) {
	release, err := c.begin("create_post", viewer.Id, content)
	if err != nil {
		return Result{}, err
	}
	defer release()

	c.mu.Lock()
	defer c.mu.Unlock()

	post, err := c.store.CreatePost(viewer.Id, viewer.Name, content)
	if err != nil {
		return Result{}, err
	}
	notice := c.persist(ctx, storage.Mutation{
		Op:     storage.OpCreatePost,
		Kind:   feed.KindPost,
		PostId: post.Id,
		Post:   post,
	})
	return c.result(viewer, notice), nil
}

func (c *Controller) AddComment(ctx context.Context, viewer render.Viewer, postId, content string) (Result, error) {
	if !viewer.Authenticated {
		return Result{}, feed.ErrUnauthenticated
	}
	release, err := c.begin("add_comment", viewer.Id, postId, content)
	if err != nil {
		return Result{}, err
	}
	defer release()

	c.mu.Lock()
	defer c.mu.Unlock()

	comment, err := c.store.CreateComment(postId, viewer.Id, viewer.Name, content)
	if err != nil {
		return Result{}, err
	}
	notice := c.persist(ctx, storage.Mutation{
		Op:        storage.OpAddComment,
		Kind:      feed.KindComment,
		PostId:    postId,
		CommentId: comment.Id,
		Comment:   comment,
	})
	return c.result(viewer, notice), nil
}

func (c *Controller) AddReply(ctx context.Context, viewer render.Viewer, postId, commentId, content string) (Result, error) {
	if !viewer.Authenticated {
		return Result{}, feed.ErrUnauthenticated
	}
	release, err := c.begin("add_reply", viewer.Id, commentId, content)
	if err != nil {
		return Result{}, err
	}
	defer release()

	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.store.CreateReply(postId, commentId, viewer.Id, viewer.Name, content)
	if err != nil {
		return Result{}, err
	}
	if m := c.modes[viewer.Id]; m.Compose && m.Id == commentId {
		delete(c.modes, viewer.Id)
	}
	notice := c.persist(ctx, storage.Mutation{
		Op:        storage.OpAddReply,
		Kind:      feed.KindReply,
		PostId:    postId,
		CommentId: commentId,
		ReplyId:   reply.Id,
		Reply:     reply,
	})
	return c.result(viewer, notice), nil
}

// Edit updates the content of a viewer-owned entity.
func (c *Controller) Edit(ctx context.Context, viewer render.Viewer, kind feed.EntityKind, id, content string) (Result, error) {
	release, err := c.begin("edit", string(kind), id, content)
	if err != nil {
		return Result{}, err
	}
	defer release()

	c.mu.Lock()
	defer c.mu.Unlock()

	loc, err := c.store.Locate(kind, id)
	if err != nil {
		return Result{}, err
	}
	if !owns(viewer, loc.AuthorId) {
		return Result{}, feed.ErrUnauthenticated
	}

	m := storage.Mutation{
		Op:        storage.OpEdit,
		Kind:      kind,
		PostId:    loc.PostId,
		CommentId: loc.CommentId,
		ReplyId:   loc.ReplyId,
	}
	switch kind {
	case feed.KindPost:
		p, err := c.store.EditPost(id, content)
		if err != nil {
			return Result{}, err
		}
		m.Content, m.EditedAt = p.Content, *p.Edited
	case feed.KindComment:
		cm, err := c.store.EditComment(id, content)
		if err != nil {
			return Result{}, err
		}
		m.Content, m.EditedAt = cm.Content, *cm.Edited
	case feed.KindReply:
		r, err := c.store.EditReply(id, content)
		if err != nil {
			return Result{}, err
		}
		m.Content, m.EditedAt = r.Content, *r.Edited
	default:
		return Result{}, feed.ErrNotFound
	}

	if m := c.modes[viewer.Id]; !m.Compose && m.Kind == kind && m.Id == id {
		delete(c.modes, viewer.Id)
	}
	notice := c.persist(ctx, m)
	return c.result(viewer, notice), nil
}

// Delete removes a viewer-owned entity and everything it owns.
func (c *Controller) Delete(ctx context.Context, viewer render.Viewer, kind feed.EntityKind, id string) (Result, error) {
	release, err := c.begin("delete", string(kind), id)
	if err != nil {
		return Result{}, err
	}
	defer release()

	c.mu.Lock()
	defer c.mu.Unlock()

	loc, err := c.store.Locate(kind, id)
	if err != nil {
		return Result{}, err
	}
	if !owns(viewer, loc.AuthorId) {
		return Result{}, feed.ErrUnauthenticated
	}

	switch kind {
	case feed.KindPost:
		err = c.store.DeletePost(id)
	case feed.KindComment:
		err = c.store.DeleteComment(id)
	case feed.KindReply:
		err = c.store.DeleteReply(id)
	default:
		err = feed.ErrNotFound
	}
	if err != nil {
		return Result{}, err
	}

	// Everybody's mode pointing at the deleted entity is stale now.
	for viewerId, m := range c.modes {
		if m.Id == id {
			delete(c.modes, viewerId)
		}
	}
	notice := c.persist(ctx, storage.Mutation{
		Op:        storage.OpDelete,
		Kind:      kind,
		PostId:    loc.PostId,
		CommentId: loc.CommentId,
		ReplyId:   loc.ReplyId,
	})
	return c.result(viewer, notice), nil
}

// ToggleLike flips the viewer's like on the entity. The durable side
// receives a signed delta so concurrent viewers don't overwrite each
// other's counts.
func (c *Controller) ToggleLike(ctx context.Context, viewer render.Viewer, kind feed.EntityKind, id string) (Result, error) {
	if !viewer.Authenticated {
		return Result{}, feed.ErrUnauthenticated
	}
	release, err := c.begin("like", string(kind), id, viewer.Id)
	if err != nil {
		return Result{}, err
	}
	defer release()

	c.mu.Lock()
	defer c.mu.Unlock()

	loc, err := c.store.Locate(kind, id)
	if err != nil {
		return Result{}, err
	}
	state, err := c.store.ToggleLike(kind, id)
	if err != nil {
		return Result{}, err
	}
	delta := 1
	if !state.LikedByViewer {
		delta = -1
	}
	notice := c.persist(ctx, storage.Mutation{
		Op:        storage.OpLike,
		Kind:      kind,
		PostId:    loc.PostId,
		CommentId: loc.CommentId,
		ReplyId:   loc.ReplyId,
		LikeDelta: delta,
	})
	return c.result(viewer, notice), nil
}

// ThreadResult pairs the rendered article discussion with the save
// notice, which is set when a freshly created anchor failed to persist.
type ThreadResult struct {
	Thread render.ThreadView `json:"thread"`
	Notice string            `json:"notice,omitempty"`
}

// ArticleThread returns the rendered discussion block for an article,
// creating its anchor post on first sight.
func (c *Controller) ArticleThread(ctx context.Context, viewer render.Viewer, title string) (ThreadResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before, _, _ := c.store.Counts()
	anchor, err := c.store.FindOrCreateArticlePost(title, viewer.Id, viewer.Name)
	if err != nil {
		return ThreadResult{}, err
	}
	after, _, _ := c.store.Counts()
	notice := ""
	if after > before {
		// freshly created anchor must become durable too
		notice = c.persist(ctx, storage.Mutation{
			Op:     storage.OpCreatePost,
			Kind:   feed.KindPost,
			PostId: anchor.Id,
			Post:   anchor,
		})
	}
	return ThreadResult{
		Thread: c.renderer.ArticleThread(anchor, viewer, c.now()),
		Notice: notice,
	}, nil
}

// BeginEdit activates edit mode for a viewer-owned entity, replacing
// any other mode the viewer had active.
func (c *Controller) BeginEdit(viewer render.Viewer, kind feed.EntityKind, id string) (Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, err := c.store.Locate(kind, id)
	if err != nil {
		return Mode{}, err
	}
	if !owns(viewer, loc.AuthorId) {
		return Mode{}, feed.ErrUnauthenticated
	}
	mode := Mode{Kind: kind, Id: id}
	c.modes[viewer.Id] = mode
	return mode, nil
}

// BeginReply activates compose-reply mode under the given comment.
func (c *Controller) BeginReply(viewer render.Viewer, commentId string) (Mode, error) {
	if !viewer.Authenticated {
		return Mode{}, feed.ErrUnauthenticated
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.store.Locate(feed.KindComment, commentId); err != nil {
		return Mode{}, err
	}
	mode := Mode{Kind: feed.KindComment, Id: commentId, Compose: true}
	c.modes[viewer.Id] = mode
	return mode, nil
}

// CancelMode drops whatever edit or compose mode the viewer has.
func (c *Controller) CancelMode(viewer render.Viewer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.modes, viewer.Id)
}

func (c *Controller) Mode(viewer render.Viewer) Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modes[viewer.Id]
}

// persist awaits the adapter within the save timeout. A failure is
// reported as a notice, never as a rollback: the in-memory state stays
// the working copy for the session.
func (c *Controller) persist(ctx context.Context, m storage.Mutation) string {
	saveCtx, cancel := context.WithTimeout(ctx, c.saveTimeout)
	defer cancel()

	var err error
	if inc, ok := c.adapter.(Incremental); ok {
		err = inc.Apply(saveCtx, m)
	} else {
		err = c.adapter.Save(saveCtx, c.store.Snapshot())
	}
	if err != nil {
		logger.Log(ctx).Warnf("controller: save failed for %s: %v", m.Op, err)
		return saveFailedNotice
	}
	return ""
}

func (c *Controller) result(viewer render.Viewer, notice string) Result {
	return Result{
		Page:   c.renderer.Render(c.store.Snapshot(), viewer, c.now()),
		Notice: notice,
		Mode:   c.modes[viewer.Id],
	}
}

// begin registers an action fingerprint, rejecting exact duplicates
// until the first instance finishes.
func (c *Controller) begin(parts ...string) (func(), error) {
	key := fingerprint(parts...)
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.pending[key] {
		return nil, ErrDuplicate
	}
	c.pending[key] = true
	return func() {
		c.pendingMu.Lock()
		delete(c.pending, key)
		c.pendingMu.Unlock()
	}, nil
}

func fingerprint(parts ...string) string {
	key := ""
	for _, p := range parts {
		key += fmt.Sprintf("%d:%s|", len(p), p)
	}
	return key
}

func owns(viewer render.Viewer, authorId string) bool {
	return viewer.Authenticated && authorId != "" && viewer.Id == authorId
}
