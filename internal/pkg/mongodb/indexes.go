package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"novelist/internal/model/story"
)

// EnsureIndexes 创建所有模型的索引，应用启动时调用
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	models := []Model{
		&story.CollectionRecord{},
	}
	return EnsureAllIndexes(ctx, db, models...)
}
