package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/brogergvhs/mangacat/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type chapterDoc struct {
	Name   string   `bson:"name"`
	Images []string `bson:"images"`
}

type storyDoc struct {
	ID          string       `bson:"_id"`
	Position    int          `bson:"position"`
	Title       string       `bson:"title"`
	Author      string       `bson:"author"`
	Description string       `bson:"description"`
	Thumbnail   string       `bson:"thumbnail"`
	Chapters    []chapterDoc `bson:"chapters"`
	SyncedAt    int64        `bson:"synced_at"`
}

func toDoc(pos int, s catalog.Story, now time.Time) storyDoc {
	chs := make([]chapterDoc, len(s.Chapters))
	for i, c := range s.Chapters {
		chs[i] = chapterDoc{Name: c.Name, Images: c.Images}
	}

	return storyDoc{
		ID:          s.ID,
		Position:    pos,
		Title:       s.Title,
		Author:      s.Author,
		Description: s.Description,
		Thumbnail:   s.Thumbnail,
		Chapters:    chs,
		SyncedAt:    now.Unix(),
	}
}

type Mongo struct {
	client  *mongo.Client
	stories *mongo.Collection
}

func OpenMongo(ctx context.Context, cfg config.MirrorConfig) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m := &Mongo{
		client:  client,
		stories: client.Database(cfg.Database).Collection(cfg.Collection),
	}

	_, err = m.stories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "position", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}

	return m, nil
}

// Sync upserts one document per story keyed by its id.
func (m *Mongo) Sync(ctx context.Context, stories []catalog.Story) error {
	if len(stories) == 0 {
		return nil
	}

	now := time.Now()
	models := make([]mongo.WriteModel, 0, len(stories))
	for i, s := range stories {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": s.ID}).
			SetReplacement(toDoc(i, s, now)).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if _, err := m.stories.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("mongo sync: %w", err)
	}

	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
