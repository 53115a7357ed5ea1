package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"context"

	"github.com/Theadekanmi/softspace/pkg/feed"
)

const (
	feedFile      = "feed.json"
	articlePrefix = "article_"
)

// SnapshotAdapter is the local persistence variant: the whole feed is
// serialized to one JSON blob on every save, and each article-embedded
// thread gets a blob of its own so articles can be managed
// independently. Missing or corrupt blobs load as an empty feed;
// startup never fails on bad data.
type SnapshotAdapter struct {
	dir string
}

func NewSnapshotAdapter(dir string) (*SnapshotAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage/snapshot: failed creating dir %s: %w", dir, err)
	}
	return &SnapshotAdapter{dir: dir}, nil
}

func (a *SnapshotAdapter) Save(ctx context.Context, snap feed.Snapshot) error {
	regular := []*feed.Post{}
	kept := map[string]bool{}
	for _, p := range snap.Posts {
		if p.IsArticleAnchor() {
			name := articleFile(p.Id)
			if err := a.writeJSON(name, p); err != nil {
				return err
			}
			kept[name] = true
			continue
		}
		regular = append(regular, p)
	}
	if err := a.writeJSON(feedFile, regular); err != nil {
		return err
	}
	// Blobs of anchors gone from the snapshot must go too, or a
	// deleted thread would come back on the next load.
	for _, name := range a.articleBlobs() {
		if !kept[name] {
			if err := os.Remove(filepath.Join(a.dir, name)); err != nil {
				return fmt.Errorf("storage/snapshot: failed removing stale %s: %w", name, err)
			}
		}
	}
	return nil
}

func (a *SnapshotAdapter) Load(ctx context.Context) (feed.Snapshot, error) {
	posts := []*feed.Post{}
	_ = a.readJSON(feedFile, &posts) // missing or corrupt feed loads empty

	for _, name := range a.articleBlobs() {
		anchor := new(feed.Post)
		if err := a.readJSON(name, anchor); err != nil || anchor.Id == "" {
			continue // a broken thread blob must not block the rest
		}
		posts = append(posts, anchor)
	}

	for _, p := range posts {
		normalizePost(p)
	}
	return feed.Snapshot{Posts: posts}, nil
}

func (a *SnapshotAdapter) writeJSON(name string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage/snapshot: failed marshaling %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(a.dir, name), b, 0o644); err != nil {
		return fmt.Errorf("storage/snapshot: failed writing %s: %w", name, err)
	}
	return nil
}

func (a *SnapshotAdapter) readJSON(name string, out interface{}) error {
	b, err := os.ReadFile(filepath.Join(a.dir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// articleBlobs lists the per-thread files currently on disk, sorted
// for stable load order.
func (a *SnapshotAdapter) articleBlobs() []string {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil
	}
	names := []string{}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, articlePrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// articleFile keys the thread blob by the anchor's id. Titles are not
// safe file names and may collide once slugged; ids never do.
func articleFile(anchorId string) string {
	return articlePrefix + anchorId + ".json"
}
