package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mango/internal/model"
)

// SubscriptionRepo 订阅仓库
type SubscriptionRepo struct {
	collection *mongo.Collection
}

// NewSubscriptionRepo 创建订阅仓库
func NewSubscriptionRepo(db *mongo.Database) *SubscriptionRepo {
	return &SubscriptionRepo{
		collection: db.Collection("subscriptions"),
	}
}

// Create 创建订阅记录（pending 状态入库）
func (r *SubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, sub)
	return err
}

// UpdateStatus 更新订阅状态
// paid 时写入过期时间，failed 时清空
func (r *SubscriptionRepo) UpdateStatus(ctx context.Context, id, status string, expiresAt *time.Time, gatewayRef string) error {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if expiresAt != nil {
		set["expires_at"] = *expiresAt
	}
	if gatewayRef != "" {
		set["gateway_reference"] = gatewayRef
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// FindActiveByUserID 查询用户当前生效的订阅（已支付且未过期，取最晚过期的）
func (r *SubscriptionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	filter := bson.M{
		"user_id":    userID,
		"status":     model.SubscriptionPaid,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	opts := options.FindOne().SetSort(bson.D{bson.E{Key: "expires_at", Value: -1}})

	var sub model.Subscription
	err := r.collection.FindOne(ctx, filter, opts).Decode(&sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByID 根据 ID 查询
func (r *SubscriptionRepo) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
