// Package render converts a feed snapshot into a display tree. It
// holds no state of its own: the same snapshot, viewer and clock
// always produce the same output. All user-supplied text is
// HTML-escaped here, uniformly, so no other layer has to remember to.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Theadekanmi/softspace/pkg/feed"
)

// Viewer identifies who is looking at the feed. Ownership of content
// (and with it the edit/delete controls) is decided by AuthorId match.
type Viewer struct {
	Id            string
	Name          string
	Authenticated bool
}

// Config holds the display knobs so feed and article views share one
// renderer instead of diverging copies.
type Config struct {
	// DefaultAuthor labels content whose author name is blank.
	DefaultAuthor string
	// AbsoluteAfter is the age past which timestamps switch from
	// relative labels to absolute ones.
	AbsoluteAfter time.Duration
	// DateFormat is the layout for absolute timestamp labels.
	DateFormat string
	// ShowArticleAnchors includes article thread anchors in the main
	// feed instead of filtering them out.
	ShowArticleAnchors bool
	// EmptyFeedMessage is shown when no posts exist.
	EmptyFeedMessage string
}

// DefaultConfig is what the shipped frontend expects.
func DefaultConfig() Config {
	return Config{
		DefaultAuthor:    feed.AnonymousAuthor,
		AbsoluteAfter:    7 * 24 * time.Hour,
		DateFormat:       "Jan 2, 2006 15:04",
		EmptyFeedMessage: "No posts yet. Be the first to share your thoughts!",
	}
}

// Control is a user-actionable element the view must wire up. Listing
// them explicitly lets tests assert "N controls exist" without a
// browser.
type Control struct {
	Action string `json:"action"` // like, reply, edit, delete, submit-comment
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

type ReplyView struct {
	Id            string    `json:"id"`
	Author        string    `json:"author"`
	ContentHTML   string    `json:"contentHtml"`
	CreatedLabel  string    `json:"createdLabel"`
	EditedLabel   string    `json:"editedLabel,omitempty"`
	LikeCount     int       `json:"likeCount"`
	LikedByViewer bool      `json:"likedByViewer"`
	Owned         bool      `json:"owned"`
	Controls      []Control `json:"controls"`
}

type CommentView struct {
	Id            string      `json:"id"`
	Author        string      `json:"author"`
	ContentHTML   string      `json:"contentHtml"`
	CreatedLabel  string      `json:"createdLabel"`
	EditedLabel   string      `json:"editedLabel,omitempty"`
	LikeCount     int         `json:"likeCount"`
	LikedByViewer bool        `json:"likedByViewer"`
	Owned         bool        `json:"owned"`
	Controls      []Control   `json:"controls"`
	Replies       []ReplyView `json:"replies"`
}

type PostView struct {
	Id            string        `json:"id"`
	Author        string        `json:"author"`
	ContentHTML   string        `json:"contentHtml"`
	CreatedLabel  string        `json:"createdLabel"`
	EditedLabel   string        `json:"editedLabel,omitempty"`
	LikeCount     int           `json:"likeCount"`
	LikedByViewer bool          `json:"likedByViewer"`
	Owned         bool          `json:"owned"`
	CommentCount  int           `json:"commentCount"`
	Controls      []Control     `json:"controls"`
	Comments      []CommentView `json:"comments"`
}

type Page struct {
	Posts        []PostView `json:"posts"`
	EmptyMessage string     `json:"emptyMessage,omitempty"`
}

// ThreadView is the display form of one article-embedded discussion.
type ThreadView struct {
	PostId   string        `json:"postId"`
	Title    string        `json:"title"`
	Comments []CommentView `json:"comments"`
	Controls []Control     `json:"controls"`
}

type Renderer struct {
	cfg Config
}

func New(cfg Config) *Renderer {
	if cfg.DefaultAuthor == "" {
		cfg.DefaultAuthor = feed.AnonymousAuthor
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultConfig().DateFormat
	}
	if cfg.AbsoluteAfter == 0 {
		cfg.AbsoluteAfter = DefaultConfig().AbsoluteAfter
	}
	return &Renderer{cfg: cfg}
}

// Render builds the page for a snapshot. now is passed in rather than
// read from the clock so output stays reproducible.
func (r *Renderer) Render(snap feed.Snapshot, viewer Viewer, now time.Time) Page {
	page := Page{Posts: []PostView{}}
	for _, p := range snap.Posts {
		if p.IsArticleAnchor() && !r.cfg.ShowArticleAnchors {
			continue
		}
		page.Posts = append(page.Posts, r.renderPost(p, viewer, now))
	}
	if len(page.Posts) == 0 {
		page.EmptyMessage = r.cfg.EmptyFeedMessage
	}
	return page
}

// ArticleThread renders the discussion block anchored by an article
// post.
func (r *Renderer) ArticleThread(anchor *feed.Post, viewer Viewer, now time.Time) ThreadView {
	tv := ThreadView{
		PostId:   anchor.Id,
		Title:    html.EscapeString(strings.TrimPrefix(anchor.Content, feed.ArticleMarker)),
		Comments: []CommentView{},
		Controls: []Control{{Action: "submit-comment", Kind: string(feed.KindPost), Target: anchor.Id}},
	}
	for _, c := range anchor.Comments {
		tv.Comments = append(tv.Comments, r.renderComment(c, viewer, now))
	}
	return tv
}

func (r *Renderer) renderPost(p *feed.Post, viewer Viewer, now time.Time) PostView {
	owned := owns(viewer, p.AuthorId)
	pv := PostView{
		Id:            p.Id,
		Author:        r.authorLabel(p.Author),
		ContentHTML:   escapeContent(p.Content),
		CreatedLabel:  r.timeLabel(p.Created, now),
		EditedLabel:   r.editedLabel(p.Edited, now),
		LikeCount:     p.LikeCount,
		LikedByViewer: p.LikedByViewer,
		Owned:         owned,
		CommentCount:  len(p.Comments),
		Controls:      r.controls(feed.KindPost, p.Id, owned, true),
		Comments:      []CommentView{},
	}
	for _, c := range p.Comments {
		pv.Comments = append(pv.Comments, r.renderComment(c, viewer, now))
	}
	return pv
}

func (r *Renderer) renderComment(c *feed.Comment, viewer Viewer, now time.Time) CommentView {
	owned := owns(viewer, c.AuthorId)
	cv := CommentView{
		Id:            c.Id,
		Author:        r.authorLabel(c.Author),
		ContentHTML:   escapeContent(c.Content),
		CreatedLabel:  r.timeLabel(c.Created, now),
		EditedLabel:   r.editedLabel(c.Edited, now),
		LikeCount:     c.LikeCount,
		LikedByViewer: c.LikedByViewer,
		Owned:         owned,
		Controls:      r.controls(feed.KindComment, c.Id, owned, true),
		Replies:       []ReplyView{},
	}
	for _, rp := range c.Replies {
		cv.Replies = append(cv.Replies, r.renderReply(rp, viewer, now))
	}
	return cv
}

func (r *Renderer) renderReply(rp *feed.Reply, viewer Viewer, now time.Time) ReplyView {
	owned := owns(viewer, rp.AuthorId)
	return ReplyView{
		Id:            rp.Id,
		Author:        r.authorLabel(rp.Author),
		ContentHTML:   escapeContent(rp.Content),
		CreatedLabel:  r.timeLabel(rp.Created, now),
		EditedLabel:   r.editedLabel(rp.Edited, now),
		LikeCount:     rp.LikeCount,
		LikedByViewer: rp.LikedByViewer,
		Owned:         owned,
		Controls:      r.controls(feed.KindReply, rp.Id, owned, false),
	}
}

func (r *Renderer) controls(kind feed.EntityKind, id string, owned, replyable bool) []Control {
	controls := []Control{{Action: "like", Kind: string(kind), Target: id}}
	if kind == feed.KindComment && replyable {
		controls = append(controls, Control{Action: "reply", Kind: string(kind), Target: id})
	}
	if owned {
		controls = append(controls,
			Control{Action: "edit", Kind: string(kind), Target: id},
			Control{Action: "delete", Kind: string(kind), Target: id},
		)
	}
	return controls
}

func (r *Renderer) authorLabel(author string) string {
	if strings.TrimSpace(author) == "" {
		author = r.cfg.DefaultAuthor
	}
	return html.EscapeString(author)
}

func (r *Renderer) editedLabel(edited *time.Time, now time.Time) string {
	if edited == nil {
		return ""
	}
	return "edited " + r.timeLabel(*edited, now)
}

func (r *Renderer) timeLabel(t, now time.Time) string {
	age := now.Sub(t)
	switch {
	case age < 0 || age >= r.cfg.AbsoluteAfter:
		return t.Format(r.cfg.DateFormat)
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func owns(viewer Viewer, authorId string) bool {
	return viewer.Authenticated && authorId != "" && viewer.Id == authorId
}

// escapeContent escapes user text and converts newlines into <br> so
// multi-line posts keep their shape inside markup.
func escapeContent(content string) string {
	escaped := html.EscapeString(content)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}
