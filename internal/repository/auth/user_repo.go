package auth

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mango/internal/model/auth"
)

// UserRepo 用户仓库
// 使用UUID作为ID，无需ObjectID转换
type UserRepo struct {
	collection *mongo.Collection
}

// NewUserRepo 创建用户仓库
func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{
		collection: db.Collection("users"),
	}
}

// Create 创建用户
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	return err
}

// FindByID 根据ID查询用户
func (r *UserRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	var user auth.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername 根据用户名查询用户
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	var user auth.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail 根据邮箱查询用户
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	var user auth.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile 更新用户资料
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, profile *auth.UserProfile) error {
	update := bson.M{
		"$set": bson.M{
			"profile":    profile,
			"updated_at": time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// UpdateLastLoginAt 更新最后登录时间
func (r *UserRepo) UpdateLastLoginAt(ctx context.Context, id string) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"last_login_at": now,
			"updated_at":    now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
