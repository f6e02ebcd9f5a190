package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes 在应用启动时创建所有集合的索引
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	// conversations 集合索引
	convColl := db.Collection("conversations")
	convIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "last_updated", Value: -1}},
			Options: options.Index().SetName("idx_user_updated"),
		},
	}
	if err := createIndexes(ctx, convColl, convIndexes); err != nil {
		return err
	}

	// users 集合索引
	userColl := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "username", Value: 1}},
			Options: options.Index().SetName("idx_username").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_email").SetUnique(true),
		},
	}
	if err := createIndexes(ctx, userColl, userIndexes); err != nil {
		return err
	}

	// refresh_tokens 集合索引
	refreshTokenColl := db.Collection("refresh_tokens")
	refreshTokenIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_user_id"),
		},
		{
			Keys:    bson.D{bson.E{Key: "token", Value: 1}},
			Options: options.Index().SetName("idx_token").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_expires_at").SetExpireAfterSeconds(0), // TTL索引，自动删除过期token
		},
	}
	if err := createIndexes(ctx, refreshTokenColl, refreshTokenIndexes); err != nil {
		return err
	}

	// subscriptions 集合索引
	subColl := db.Collection("subscriptions")
	subIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "status", Value: 1}, bson.E{Key: "expires_at", Value: -1}},
			Options: options.Index().SetName("idx_user_status_expires"),
		},
		{
			Keys:    bson.D{bson.E{Key: "transaction_reference", Value: 1}},
			Options: options.Index().SetName("idx_tx_ref").SetUnique(true),
		},
	}
	if err := createIndexes(ctx, subColl, subIndexes); err != nil {
		return err
	}

	return nil
}

// createIndexes 幂等创建索引
func createIndexes(ctx context.Context, coll *mongo.Collection, indexes []mongo.IndexModel) error {
	if len(indexes) == 0 {
		return nil
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
