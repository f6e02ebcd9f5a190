package ai

import (
	"errors"

	"mango/internal/config"
	"mango/internal/pkg/gemini"
)

// ErrCommunication 文本调用失败时暴露给用户的统一错误
// 具体原因只进日志，不透传给前端
var ErrCommunication = errors.New("Falha na comunicação com a IA.")

// 默认系统指令（用户未自定义时使用）
const defaultSystemInstruction = `Você é um assistente inteligente, claro e organizado.

Regras:
- Responda de forma curta e direta.
- Use alguns emojis quando fizer sentido 😊
- Não escreva textos muito longos.
- Organize a resposta com pequenas divisões (---).
- Seja claro, útil e objetivo.
- Você DEVE dividir temas diferentes usando títulos de Markdown (## Título do Tema).
- Se o usuário pedir para gerar uma imagem, responda confirmando o que irá criar.
- Nunca use balões de fala.`

// Client AI 能力层客户端
// 职责: 消息交换协议——请求构建、阻塞/流式调用、图片侧通道提取、引用提取
// 无共享可变状态，每次调用独立
type Client struct {
	cfg    *config.GeminiConfig
	gemini *gemini.Client
}

// NewClient 创建 AI 客户端
func NewClient(cfg *config.GeminiConfig) *Client {
	return &Client{
		cfg:    cfg,
		gemini: gemini.NewClient(cfg),
	}
}
