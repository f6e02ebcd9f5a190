package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mango/internal/model"
)

// ConversationRepo 对话仓库
// ID使用UUID（string），客户端可以先行生成草稿ID
type ConversationRepo struct {
	collection *mongo.Collection
}

// NewConversationRepo 创建对话仓库
func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		collection: db.Collection("conversations"),
	}
}

// Upsert 插入或整体替换对话
// 没有任何消息的对话不落库（客户端草稿）
func (r *ConversationRepo) Upsert(ctx context.Context, conv *model.Conversation) error {
	if len(conv.Messages) == 0 {
		return nil
	}

	now := time.Now()
	conv.LastUpdated = now
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": conv.ID}, conv, opts)
	return err
}

// FindByID 根据 ID 查询（校验归属）
func (r *ConversationRepo) FindByID(ctx context.Context, id, userID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByUserID 查询用户对话列表（不带消息体，按更新时间倒序）
func (r *ConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "last_updated", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset).
		SetProjection(bson.M{"messages": 0})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []*model.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}

	return convs, nil
}

// Delete 删除对话（校验归属）
func (r *ConversationRepo) Delete(ctx context.Context, id, userID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	return err
}
