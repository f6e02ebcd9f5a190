package ai

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/model"
)

func makeTurns(n int) []model.Message {
	turns := make([]model.Message, n)
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleModel
		}
		turns[i] = model.Message{
			ID:   fmt.Sprintf("msg-%d", i),
			Role: role,
			Text: fmt.Sprintf("mensagem %d", i),
		}
	}
	return turns
}

func TestCompactHistory(t *testing.T) {
	Convey("CompactHistory 压缩对话历史", t, func() {
		Convey("空历史返回空切片", func() {
			result := CompactHistory(nil)
			So(result, ShouldHaveLength, 0)
		})

		Convey("不超过窗口大小时原样保留", func() {
			turns := makeTurns(5)
			result := CompactHistory(turns)
			So(result, ShouldHaveLength, 5)
			for i := range result {
				So(result[i].Text, ShouldEqual, turns[i].Text)
			}
		})

		Convey("超过窗口但不超过阈值时只保留最近5轮", func() {
			turns := makeTurns(8)
			result := CompactHistory(turns)
			So(result, ShouldHaveLength, 5)
			So(result[0].Text, ShouldEqual, "mensagem 3")
			So(result[4].Text, ShouldEqual, "mensagem 7")
		})

		Convey("正好等于阈值时不生成摘要", func() {
			turns := makeTurns(10)
			result := CompactHistory(turns)
			So(result, ShouldHaveLength, 5)
			So(result[0].Text, ShouldEqual, "mensagem 5")
		})

		Convey("超过阈值时折叠成摘要加最近5轮", func() {
			turns := makeTurns(12)
			result := CompactHistory(turns)
			So(result, ShouldHaveLength, 6)

			summary := result[0]
			So(summary.Role, ShouldEqual, model.RoleModel)
			So(summary.Text, ShouldEqual, "Resumo do contexto: discutimos 7 mensagens anteriores nesta conversa.")

			So(result[1].Text, ShouldEqual, "mensagem 7")
			So(result[5].Text, ShouldEqual, "mensagem 11")
		})

		Convey("纯函数：两次调用结果一致且不修改输入", func() {
			turns := makeTurns(12)
			first := CompactHistory(turns)
			second := CompactHistory(turns)

			So(len(first), ShouldEqual, len(second))
			for i := range first {
				So(first[i].Text, ShouldEqual, second[i].Text)
			}
			So(turns, ShouldHaveLength, 12)
			So(turns[0].Text, ShouldEqual, "mensagem 0")
		})
	})
}
