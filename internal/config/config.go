package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Title   TitleConfig   `mapstructure:"title"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Billing BillingConfig `mapstructure:"billing"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GeminiConfig Gemini 对话/图片生成配置
type GeminiConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`          // 默认 https://generativelanguage.googleapis.com/v1beta
	PreciseModel    string `mapstructure:"precise_model"`     // 精确模式模型
	CreativeModel   string `mapstructure:"creative_model"`    // 创意模式模型
	ImageModel      string `mapstructure:"image_model"`       // 图片生成模型
	MaxOutputTokens int    `mapstructure:"max_output_tokens"` // 单次回复 token 上限
	EnableSearch    bool   `mapstructure:"enable_search"`     // 是否启用 Google Search Grounding
}

// TitleConfig 标题摘要模型配置（eino ChatModel）
// 为空时回退到首条消息截断
type TitleConfig struct {
	Provider string  `mapstructure:"provider"` // openai / azure / ark
	APIKey   string  `mapstructure:"api_key"`
	Model    string  `mapstructure:"model"`
	BaseURL  string  `mapstructure:"base_url"`
	Options  Options `mapstructure:"options"`
}

// Options 摘要模型参数
type Options struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`           // JWT密钥
	AccessTokenExpiry  time.Duration `mapstructure:"access_token_expiry"`  // Access Token过期时间
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"` // Refresh Token过期时间
}

// BillingConfig Debito 移动支付网关配置
type BillingConfig struct {
	BaseURL string `mapstructure:"base_url"` // 默认 https://api.debito.co.mz/v1
	APIKey  string `mapstructure:"api_key"`
}

// StorageConfig 存储配置（生成的图片落盘）
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	PresignExpiry   int    `mapstructure:"presign_expiry"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Gemini.MaxOutputTokens < 0 {
		return errors.New("gemini.max_output_tokens must be >= 0")
	}

	return nil
}
