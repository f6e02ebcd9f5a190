package ai

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFallbackTitle(t *testing.T) {
	Convey("FallbackTitle 生成截断标题", t, func() {
		Convey("空消息返回默认标题", func() {
			So(FallbackTitle(""), ShouldEqual, "Nova Conversa")
			So(FallbackTitle("   \n  "), ShouldEqual, "Nova Conversa")
		})

		Convey("短消息原样使用", func() {
			So(FallbackTitle("Olá, tudo bem?"), ShouldEqual, "Olá, tudo bem?")
		})

		Convey("正好40个字符不截断", func() {
			text := strings.Repeat("a", 40)
			So(FallbackTitle(text), ShouldEqual, text)
		})

		Convey("超过40个字符截断为37个字符加省略号", func() {
			text := strings.Repeat("a", 50)
			title := FallbackTitle(text)
			So(title, ShouldEqual, strings.Repeat("a", 37)+"...")
			So(len([]rune(title)), ShouldEqual, 40)
		})

		Convey("多字节字符按字符数截断", func() {
			text := strings.Repeat("ç", 50)
			title := FallbackTitle(text)
			So(title, ShouldEqual, strings.Repeat("ç", 37)+"...")
		})

		Convey("首尾空白被裁剪", func() {
			So(FallbackTitle("  pergunta  "), ShouldEqual, "pergunta")
		})
	})
}
