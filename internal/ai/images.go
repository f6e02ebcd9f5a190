package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// ImagesPlaceholder 最终文本中标记图片渲染位置的字面量
const ImagesPlaceholder = "|||IMAGES_PLACEHOLDER|||"

// 每次图片请求生成的张数下限/上限
const (
	minImageCount = 3
	maxImageCount = 6
)

// 模型文本中的图片生成指令，关键字大小写不敏感
var imageTagPattern = regexp.MustCompile(`(?i)\[IMAGE:\s*([^\]]*)\]`)

// 用户输入中触发图片兜底路径的固定短语
var imageTriggerPhrases = []string{
	"gerar imagem",
	"crie uma imagem",
	"desenhe",
	"mostre uma imagem",
	"foto de",
	"imagem de",
	"generate image",
	"create image",
}

// isImageRequest 用户输入是否命中图片触发短语
func isImageRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range imageTriggerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// extractImageTags 收集全部指令的描述文本
func extractImageTags(text string) []string {
	matches := imageTagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	descs := make([]string, 0, len(matches))
	for _, m := range matches {
		descs = append(descs, strings.TrimSpace(m[1]))
	}
	return descs
}

// replaceImageTags 第一个指令替换为占位符，其余指令删除
func replaceImageTags(text string) string {
	first := true
	return imageTagPattern.ReplaceAllStringFunc(text, func(string) string {
		if first {
			first = false
			return ImagesPlaceholder
		}
		return ""
	})
}

// padDescriptions 不足 3 条时重复最后一条补齐，超过 6 条截断
func padDescriptions(descs []string) []string {
	if len(descs) == 0 {
		return nil
	}
	out := make([]string, 0, maxImageCount)
	out = append(out, descs...)
	for len(out) < minImageCount {
		out = append(out, out[len(out)-1])
	}
	if len(out) > maxImageCount {
		out = out[:maxImageCount]
	}
	return out
}

// generateImages 按描述逐张生成，单张失败只记日志不终止整轮
func (c *Client) generateImages(ctx context.Context, prompts []string) []string {
	var images []string
	for _, prompt := range prompts {
		inline, err := c.gemini.GenerateImage(ctx, c.cfg.ImageModel, prompt)
		if err != nil {
			log.Warn().Err(err).Str("prompt", prompt).Msg("image generation failed, skipping")
			continue
		}
		for _, img := range inline {
			images = append(images, fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Data))
		}
	}
	return images
}

// postProcess 对完成的回复文本做图片侧通道提取
// 1. 文本里有 [IMAGE: ...] 指令：按描述生成图片，首个指令换成占位符，其余删除
// 2. 没有指令但用户输入命中触发短语：合成确认句 + 占位符，用原始输入作为提示词
// 3. 都没有：原样返回
func (c *Client) postProcess(ctx context.Context, userText, responseText string) (string, []string) {
	if descs := extractImageTags(responseText); len(descs) > 0 {
		images := c.generateImages(ctx, padDescriptions(descs))
		return replaceImageTags(responseText), images
	}

	if isImageRequest(userText) {
		prompts := make([]string, minImageCount)
		for i := range prompts {
			prompts[i] = userText
		}
		images := c.generateImages(ctx, prompts)
		if len(images) == 0 {
			// 全部失败则保留原始回复，优雅降级
			return responseText, nil
		}
		text := fmt.Sprintf("Com certeza! Gerei %d imagem(ns) baseada(s) no seu pedido. %s",
			len(images), ImagesPlaceholder)
		return text, images
	}

	return responseText, nil
}
