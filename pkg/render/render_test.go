package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theadekanmi/softspace/pkg/feed"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func testSnapshot() feed.Snapshot {
	post := &feed.Post{
		Id:       "p1",
		AuthorId: "u1",
		Author:   "Ada",
		Content:  "Hello world",
		Created:  testNow.Add(-5 * time.Minute),
		Comments: []*feed.Comment{
			{
				Id:       "c1",
				PostId:   "p1",
				AuthorId: "u2",
				Author:   "Grace",
				Content:  "Nice!",
				Created:  testNow.Add(-3 * time.Minute),
				Replies: []*feed.Reply{
					{
						Id:        "r1",
						PostId:    "p1",
						CommentId: "c1",
						AuthorId:  "u1",
						Author:    "Ada",
						Content:   "Thanks",
						Created:   testNow.Add(-time.Minute),
					},
				},
			},
		},
	}
	return feed.Snapshot{Posts: []*feed.Post{post}}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := New(DefaultConfig())
	viewer := Viewer{Id: "u1", Name: "Ada", Authenticated: true}
	snap := testSnapshot()

	first := r.Render(snap, viewer, testNow)
	second := r.Render(snap, viewer, testNow)
	assert.Equal(t, first, second)
}

func TestRenderEscapesUserText(t *testing.T) {
	r := New(DefaultConfig())
	snap := feed.Snapshot{Posts: []*feed.Post{{
		Id:       "p1",
		AuthorId: "u1",
		Author:   `<img src=x onerror=alert(1)>`,
		Content:  "<script>alert('xss')</script>\nsecond line",
		Created:  testNow,
	}}}

	page := r.Render(snap, Viewer{}, testNow)
	require.Len(t, page.Posts, 1)
	pv := page.Posts[0]
	assert.NotContains(t, pv.ContentHTML, "<script>")
	assert.Contains(t, pv.ContentHTML, "&lt;script&gt;")
	assert.Contains(t, pv.ContentHTML, "<br>")
	assert.NotContains(t, pv.Author, "<img")
}

func TestRenderControls(t *testing.T) {
	r := New(DefaultConfig())
	snap := testSnapshot()

	t.Run("owner sees edit and delete", func(t *testing.T) {
		page := r.Render(snap, Viewer{Id: "u1", Authenticated: true}, testNow)
		pv := page.Posts[0]
		assert.True(t, pv.Owned)
		actions := controlActions(pv.Controls)
		assert.Equal(t, []string{"like", "edit", "delete"}, actions)

		// u1 owns the reply but not Grace's comment.
		cv := pv.Comments[0]
		assert.False(t, cv.Owned)
		assert.Equal(t, []string{"like", "reply"}, controlActions(cv.Controls))
		assert.True(t, cv.Replies[0].Owned)
	})

	t.Run("signed-out viewer only gets like", func(t *testing.T) {
		page := r.Render(snap, Viewer{}, testNow)
		pv := page.Posts[0]
		assert.False(t, pv.Owned)
		assert.Equal(t, []string{"like"}, controlActions(pv.Controls))
	})

	t.Run("matching id without auth does not own", func(t *testing.T) {
		page := r.Render(snap, Viewer{Id: "u1", Authenticated: false}, testNow)
		assert.False(t, page.Posts[0].Owned)
	})
}

func controlActions(controls []Control) []string {
	actions := make([]string, 0, len(controls))
	for _, c := range controls {
		actions = append(actions, c.Action)
	}
	return actions
}

func TestTimeLabels(t *testing.T) {
	r := New(DefaultConfig())

	cases := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"fresh", 30 * time.Second, "just now"},
		{"minutes", 12 * time.Minute, "12m ago"},
		{"hours", 5 * time.Hour, "5h ago"},
		{"days", 3 * 24 * time.Hour, "3d ago"},
		{"old enough for a date", 10 * 24 * time.Hour, "Apr 30, 2024 12:00"},
		{"future timestamps fall back to a date", -time.Hour, "May 10, 2024 13:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.timeLabel(testNow.Add(-tc.age), testNow)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEditedLabel(t *testing.T) {
	r := New(DefaultConfig())
	edited := testNow.Add(-2 * time.Minute)
	snap := feed.Snapshot{Posts: []*feed.Post{{
		Id:      "p1",
		Author:  "Ada",
		Content: "changed",
		Created: testNow.Add(-time.Hour),
		Edited:  &edited,
	}}}

	page := r.Render(snap, Viewer{}, testNow)
	assert.Equal(t, "edited 2m ago", page.Posts[0].EditedLabel)
}

func TestDefaultAuthorFallback(t *testing.T) {
	r := New(DefaultConfig())
	snap := feed.Snapshot{Posts: []*feed.Post{{
		Id:      "p1",
		Author:  "   ",
		Content: "who wrote this",
		Created: testNow,
	}}}

	page := r.Render(snap, Viewer{}, testNow)
	assert.Equal(t, feed.AnonymousAuthor, page.Posts[0].Author)
}

func TestEmptyFeedMessage(t *testing.T) {
	r := New(DefaultConfig())
	page := r.Render(feed.Snapshot{}, Viewer{}, testNow)
	assert.Empty(t, page.Posts)
	assert.Equal(t, DefaultConfig().EmptyFeedMessage, page.EmptyMessage)
}

func TestArticleAnchorsHiddenFromFeed(t *testing.T) {
	anchor := &feed.Post{
		Id:      "a1",
		Author:  "Ada",
		Content: feed.ArticleMarker + "Go Generics",
		Created: testNow,
	}
	regular := &feed.Post{
		Id:      "p1",
		Author:  "Ada",
		Content: "regular post",
		Created: testNow,
	}
	snap := feed.Snapshot{Posts: []*feed.Post{anchor, regular}}

	t.Run("hidden by default", func(t *testing.T) {
		page := New(DefaultConfig()).Render(snap, Viewer{}, testNow)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, "p1", page.Posts[0].Id)
	})

	t.Run("shown when configured", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ShowArticleAnchors = true
		page := New(cfg).Render(snap, Viewer{}, testNow)
		assert.Len(t, page.Posts, 2)
	})
}

func TestArticleThread(t *testing.T) {
	r := New(DefaultConfig())
	anchor := &feed.Post{
		Id:       "a1",
		AuthorId: "u1",
		Author:   "Ada",
		Content:  feed.ArticleMarker + "Go <Generics>",
		Created:  testNow,
		Comments: []*feed.Comment{{
			Id:       "c1",
			PostId:   "a1",
			AuthorId: "u2",
			Author:   "Grace",
			Content:  "Great read",
			Created:  testNow,
		}},
	}

	tv := r.ArticleThread(anchor, Viewer{}, testNow)
	assert.Equal(t, "a1", tv.PostId)
	assert.Equal(t, "Go &lt;Generics&gt;", tv.Title)
	require.Len(t, tv.Comments, 1)
	assert.Equal(t, []string{"submit-comment"}, controlActions(tv.Controls))
}
