package auth

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mango/internal/model/auth"
)

// RefreshTokenRepo RefreshToken仓库
// 过期Token由 TTL 索引自动清理（见 mongodb.EnsureIndexes）
type RefreshTokenRepo struct {
	collection *mongo.Collection
}

// NewRefreshTokenRepo 创建RefreshToken仓库
func NewRefreshTokenRepo(db *mongo.Database) *RefreshTokenRepo {
	return &RefreshTokenRepo{
		collection: db.Collection("refresh_tokens"),
	}
}

// Create 创建RefreshToken
func (r *RefreshTokenRepo) Create(ctx context.Context, token *auth.RefreshToken) error {
	token.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, token)
	return err
}

// FindByToken 根据Token值查询
func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	var refreshToken auth.RefreshToken
	err := r.collection.FindOne(ctx, bson.M{"token": token}).Decode(&refreshToken)
	if err != nil {
		return nil, err
	}
	return &refreshToken, nil
}

// DeleteByToken 根据Token值删除
func (r *RefreshTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"token": token})
	return err
}

// DeleteByUserID 删除用户的所有Token
func (r *RefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
