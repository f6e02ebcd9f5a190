package ai

import (
	"fmt"

	"mango/internal/model"
)

// 历史压缩参数：超过阈值时折叠，总是只保留最近的窗口
const (
	compactionThreshold = 10
	recentWindow        = 5
)

// CompactHistory 压缩发送给模型的对话历史，限定上下文大小
//
// 规则：
//   - 总轮数 ≤ 阈值：只保留最近 recentWindow 轮，原样返回
//   - 总轮数 > 阈值：更早的轮折叠成一条合成的 model 角色摘要，再接最近 recentWindow 轮
//
// 合成摘要只存在于单次请求的上下文里，从不持久化。
// 纯函数，同一输入两次调用结果相同。
func CompactHistory(turns []model.Message) []model.Message {
	if len(turns) <= recentWindow {
		out := make([]model.Message, len(turns))
		copy(out, turns)
		return out
	}

	recent := turns[len(turns)-recentWindow:]

	if len(turns) <= compactionThreshold {
		out := make([]model.Message, recentWindow)
		copy(out, recent)
		return out
	}

	collapsed := len(turns) - recentWindow
	summary := model.Message{
		Role: model.RoleModel,
		Text: fmt.Sprintf("Resumo do contexto: discutimos %d mensagens anteriores nesta conversa.", collapsed),
	}

	out := make([]model.Message, 0, recentWindow+1)
	out = append(out, summary)
	out = append(out, recent...)
	return out
}
