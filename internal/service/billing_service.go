package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"mango/internal/model"
	"mango/internal/pkg/cache"
	"mango/internal/pkg/debito"
	"mango/internal/pkg/id"
	"mango/internal/repository"
)

// 订阅周期：支付成功后 30 天
const subscriptionPeriod = 30 * 24 * time.Hour

var (
	ErrPaymentFailed = errors.New("falha na comunicação com o gateway de pagamento")
)

// BillingService 订阅/支付服务
// 编排订阅记录和 Debito 网关；webhook 异步确认不在范围内
type BillingService struct {
	subRepo *repository.SubscriptionRepo
	gateway *debito.Client
	cache   *cache.RedisCache // 可选
}

// NewBillingService 创建订阅服务
func NewBillingService(subRepo *repository.SubscriptionRepo, gateway *debito.Client, redisCache *cache.RedisCache) *BillingService {
	return &BillingService{
		subRepo: subRepo,
		gateway: gateway,
		cache:   redisCache,
	}
}

// InitiateSubscription 发起订阅
// 流程: 1. 校验手机号（任何网络调用之前）-> 2. pending 记录入库 ->
// 3. 调用网关 -> 4. 按结果更新状态
func (s *BillingService) InitiateSubscription(ctx context.Context, userID string, req *model.SubscribeRequest) (*model.Subscription, error) {
	logger := log.With().Str("user_id", userID).Str("plan", req.PlanName).Logger()

	if err := debito.ValidatePhone(req.PhoneNumber, req.PaymentMethod); err != nil {
		return nil, err
	}

	sub := &model.Subscription{
		ID:             id.New(),
		UserID:         userID,
		PlanName:       req.PlanName,
		Price:          req.Amount,
		PaymentMethod:  req.PaymentMethod,
		PhoneNumber:    debito.NormalizePhone(req.PhoneNumber),
		Status:         model.SubscriptionPending,
		TransactionRef: "TX-" + strings.ToUpper(shortuuid.New()),
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		logger.Error().Err(err).Msg("failed to create subscription record")
		return nil, errors.New("falha ao registrar intenção de pagamento")
	}

	gatewayResp, err := s.gateway.Charge(ctx, &debito.C2BRequest{
		Number:    sub.PhoneNumber,
		Amount:    int(math.Round(req.Amount)),
		Method:    req.PaymentMethod,
		Reference: sub.ID,
	})
	if err != nil {
		logger.Error().Err(err).Msg("gateway charge failed")
		if updateErr := s.subRepo.UpdateStatus(ctx, sub.ID, model.SubscriptionFailed, nil, ""); updateErr != nil {
			logger.Warn().Err(updateErr).Msg("failed to mark subscription as failed")
		}
		sub.Status = model.SubscriptionFailed
		return sub, ErrPaymentFailed
	}

	expiresAt := time.Now().Add(subscriptionPeriod)
	if err := s.subRepo.UpdateStatus(ctx, sub.ID, model.SubscriptionPaid, &expiresAt, gatewayResp.ID); err != nil {
		logger.Error().Err(err).Msg("failed to mark subscription as paid")
		return nil, errors.New("falha ao atualizar a subscrição")
	}

	sub.Status = model.SubscriptionPaid
	sub.ExpiresAt = &expiresAt
	sub.GatewayRef = gatewayResp.ID

	// 支付成功后让缓存失效
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.SubscriptionCacheKey(userID)); err != nil {
			logger.Warn().Err(err).Msg("failed to invalidate subscription cache")
		}
	}

	logger.Info().
		Str("subscription_id", sub.ID).
		Str("gateway_ref", sub.GatewayRef).
		Msg("subscription paid")

	return sub, nil
}

// GetActiveSubscription 查询用户当前生效的订阅，带 Redis 缓存
// 没有生效订阅时返回 (nil, nil)
func (s *BillingService) GetActiveSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	if s.cache != nil {
		var cached model.Subscription
		if err := s.cache.Get(ctx, cache.SubscriptionCacheKey(userID), &cached); err == nil {
			if cached.IsActive() {
				return &cached, nil
			}
		}
	}

	sub, err := s.subRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		// 没有记录不是错误
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.SubscriptionCacheKey(userID), sub, cache.SubscriptionCacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache subscription")
		}
	}

	return sub, nil
}
