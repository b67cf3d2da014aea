package story

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	model "novelist/internal/model/story"
)

// MongoBackend MongoDB 存储
// 故事库保存为一条按 key upsert 的记录，单文档写入本身是原子的
type MongoBackend struct {
	coll *mongo.Collection
	key  string
}

// NewMongoBackend 创建 MongoDB 存储
func NewMongoBackend(db *mongo.Database) *MongoBackend {
	var r model.CollectionRecord
	return &MongoBackend{coll: db.Collection(r.Collection()), key: CollectionKey}
}

// Load 读取
func (b *MongoBackend) Load(ctx context.Context) ([]byte, error) {
	var r model.CollectionRecord
	err := b.coll.FindOne(ctx, bson.M{"key": b.key}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Payload, nil
}

// Store 写入
func (b *MongoBackend) Store(ctx context.Context, data []byte) error {
	update := bson.M{"$set": bson.M{
		"payload":    data,
		"updated_at": time.Now(),
	}}
	_, err := b.coll.UpdateOne(ctx, bson.M{"key": b.key}, update, options.Update().SetUpsert(true))
	return err
}
