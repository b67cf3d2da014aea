package story

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionRecord 故事库在 MongoDB 中的存储记录
// 整个故事库序列化后保存在一条记录里，按 key 寻址
type CollectionRecord struct {
	Key       string    `bson:"key" json:"key"`
	Payload   []byte    `bson:"payload" json:"payload"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (r *CollectionRecord) Collection() string {
	return "story_collections"
}

// EnsureIndexes 创建和维护索引
func (r *CollectionRecord) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(r.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetName("idx_key").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
