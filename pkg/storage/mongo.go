package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Theadekanmi/softspace/pkg/feed"
)

// MongoAdapter is the remote persistence variant: posts live as
// documents with comments and replies embedded, and every store
// operation is replayed as one targeted update. Server-side state is
// shared between viewers, so like changes go through $inc deltas.
type MongoAdapter struct {
	posts IMongoCollection
}

func NewMongoAdapter(postsCol *mongo.Collection) *MongoAdapter {
	return &MongoAdapter{
		posts: &MongoCollection{Coll: postsCol},
	}
}

// Load pulls the whole feed, newest post first.
func (a *MongoAdapter) Load(ctx context.Context) (feed.Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := a.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return feed.Snapshot{}, fmt.Errorf("storage/mongo: failed finding posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []*feed.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return feed.Snapshot{}, fmt.Errorf("storage/mongo: failed reading posts from cursor: %w", err)
	}
	for _, p := range posts {
		normalizePost(p)
	}
	return feed.Snapshot{Posts: posts}, nil
}

// Save rewrites the whole collection from the snapshot. Normal traffic
// goes through Apply; Save backs seeding and recovery paths.
func (a *MongoAdapter) Save(ctx context.Context, snap feed.Snapshot) error {
	if _, err := a.posts.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("storage/mongo: failed clearing posts: %w", err)
	}
	for _, p := range snap.Posts {
		if _, err := a.posts.InsertOne(ctx, p); err != nil {
			return fmt.Errorf("storage/mongo: failed inserting post %s: %w", p.Id, err)
		}
	}
	return nil
}

// Apply maps one store mutation onto a single remote call.
func (a *MongoAdapter) Apply(ctx context.Context, m Mutation) error {
	switch m.Op {
	case OpCreatePost:
		_, err := a.posts.InsertOne(ctx, m.Post)
		if err != nil {
			return fmt.Errorf("storage/mongo: failed inserting post: %w", err)
		}
		return nil

	case OpAddComment:
		filter := bson.D{{Key: "id", Value: m.PostId}}
		update := bson.D{{Key: "$push", Value: bson.D{{Key: "comments", Value: m.Comment}}}}
		return a.updateOne(ctx, "add comment", filter, update)

	case OpAddReply:
		filter := bson.D{{Key: "id", Value: m.PostId}}
		update := bson.D{{Key: "$push", Value: bson.D{
			{Key: "comments.$[c].replies", Value: m.Reply},
		}}}
		return a.updateOne(ctx, "add reply", filter, update, commentFilter(m.CommentId))

	case OpEdit:
		return a.applyEdit(ctx, m)

	case OpDelete:
		return a.applyDelete(ctx, m)

	case OpLike:
		return a.applyLikeDelta(ctx, m)
	}
	return fmt.Errorf("storage/mongo: unknown mutation op %q", m.Op)
}

func (a *MongoAdapter) applyEdit(ctx context.Context, m Mutation) error {
	filter := bson.D{{Key: "id", Value: m.PostId}}
	switch m.Kind {
	case feed.KindPost:
		update := bson.D{{Key: "$set", Value: bson.D{
			{Key: "content", Value: m.Content},
			{Key: "edited_at", Value: m.EditedAt},
		}}}
		return a.updateOne(ctx, "edit post", filter, update)
	case feed.KindComment:
		update := bson.D{{Key: "$set", Value: bson.D{
			{Key: "comments.$[c].content", Value: m.Content},
			{Key: "comments.$[c].edited_at", Value: m.EditedAt},
		}}}
		return a.updateOne(ctx, "edit comment", filter, update, commentFilter(m.CommentId))
	case feed.KindReply:
		update := bson.D{{Key: "$set", Value: bson.D{
			{Key: "comments.$[c].replies.$[r].content", Value: m.Content},
			{Key: "comments.$[c].replies.$[r].edited_at", Value: m.EditedAt},
		}}}
		return a.updateOne(ctx, "edit reply", filter, update,
			commentFilter(m.CommentId), replyFilter(m.ReplyId))
	}
	return fmt.Errorf("storage/mongo: edit for unknown kind %q", m.Kind)
}

func (a *MongoAdapter) applyDelete(ctx context.Context, m Mutation) error {
	switch m.Kind {
	case feed.KindPost:
		res, err := a.posts.DeleteOne(ctx, bson.D{{Key: "id", Value: m.PostId}})
		if err != nil {
			return fmt.Errorf("storage/mongo: failed deleting post: %w", err)
		}
		if res.DeletedCount() == 0 {
			return fmt.Errorf("storage/mongo: delete post: %w", feed.ErrNotFound)
		}
		return nil
	case feed.KindComment:
		filter := bson.D{{Key: "id", Value: m.PostId}}
		update := bson.D{{Key: "$pull", Value: bson.D{
			{Key: "comments", Value: bson.D{{Key: "id", Value: m.CommentId}}},
		}}}
		return a.updateOne(ctx, "delete comment", filter, update)
	case feed.KindReply:
		filter := bson.D{{Key: "id", Value: m.PostId}}
		update := bson.D{{Key: "$pull", Value: bson.D{
			{Key: "comments.$[c].replies", Value: bson.D{{Key: "id", Value: m.ReplyId}}},
		}}}
		return a.updateOne(ctx, "delete reply", filter, update, commentFilter(m.CommentId))
	}
	return fmt.Errorf("storage/mongo: delete for unknown kind %q", m.Kind)
}

func (a *MongoAdapter) applyLikeDelta(ctx context.Context, m Mutation) error {
	filter := bson.D{{Key: "id", Value: m.PostId}}
	switch m.Kind {
	case feed.KindPost:
		update := bson.D{{Key: "$inc", Value: bson.D{{Key: "likes", Value: m.LikeDelta}}}}
		return a.updateOne(ctx, "like post", filter, update)
	case feed.KindComment:
		update := bson.D{{Key: "$inc", Value: bson.D{
			{Key: "comments.$[c].likes", Value: m.LikeDelta},
		}}}
		return a.updateOne(ctx, "like comment", filter, update, commentFilter(m.CommentId))
	case feed.KindReply:
		update := bson.D{{Key: "$inc", Value: bson.D{
			{Key: "comments.$[c].replies.$[r].likes", Value: m.LikeDelta},
		}}}
		return a.updateOne(ctx, "like reply", filter, update,
			commentFilter(m.CommentId), replyFilter(m.ReplyId))
	}
	return fmt.Errorf("storage/mongo: like for unknown kind %q", m.Kind)
}

func (a *MongoAdapter) updateOne(ctx context.Context, what string, filter, update bson.D, arrayFilters ...interface{}) error {
	opts := []*options.UpdateOptions{}
	if len(arrayFilters) > 0 {
		opts = append(opts, options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: arrayFilters,
		}))
	}
	res, err := a.posts.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return fmt.Errorf("storage/mongo: failed to %s: %w", what, err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("storage/mongo: %s: %w", what, feed.ErrNotFound)
	}
	return nil
}

func commentFilter(commentId string) interface{} {
	return bson.D{{Key: "c.id", Value: commentId}}
}

func replyFilter(replyId string) interface{} {
	return bson.D{{Key: "r.id", Value: replyId}}
}

// normalizePost backfills nil slices after BSON decoding so the store
// never sees nil comment/reply sequences.
func normalizePost(p *feed.Post) {
	if p.Comments == nil {
		p.Comments = []*feed.Comment{}
	}
	for _, c := range p.Comments {
		if c.Replies == nil {
			c.Replies = []*feed.Reply{}
		}
	}
}
