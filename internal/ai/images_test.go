package ai

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractImageTags(t *testing.T) {
	Convey("extractImageTags 提取图片生成指令", t, func() {
		Convey("没有指令返回 nil", func() {
			So(extractImageTags("apenas texto comum"), ShouldBeNil)
		})

		Convey("单个指令", func() {
			descs := extractImageTags("Aqui está: [IMAGE: um gato laranja]")
			So(descs, ShouldResemble, []string{"um gato laranja"})
		})

		Convey("多个指令按出现顺序提取", func() {
			descs := extractImageTags("[IMAGE: praia] texto [IMAGE: montanha]")
			So(descs, ShouldResemble, []string{"praia", "montanha"})
		})

		Convey("关键字大小写不敏感", func() {
			descs := extractImageTags("[image: gato] e [Image: cão]")
			So(descs, ShouldResemble, []string{"gato", "cão"})
		})

		Convey("描述两侧空白被裁剪", func() {
			descs := extractImageTags("[IMAGE:   céu estrelado  ]")
			So(descs, ShouldResemble, []string{"céu estrelado"})
		})

		Convey("空描述提取为空串", func() {
			descs := extractImageTags("[IMAGE: ]")
			So(descs, ShouldResemble, []string{""})
		})
	})
}

func TestReplaceImageTags(t *testing.T) {
	Convey("replaceImageTags 替换图片指令", t, func() {
		Convey("第一个指令换成占位符", func() {
			out := replaceImageTags("Veja: [IMAGE: um gato]")
			So(out, ShouldEqual, "Veja: "+ImagesPlaceholder)
		})

		Convey("后续指令被删除", func() {
			out := replaceImageTags("Intro [IMAGE: a] meio [IMAGE: b] fim")
			So(out, ShouldEqual, "Intro "+ImagesPlaceholder+" meio  fim")
		})

		Convey("结尾的指令删除后保留前面的空格", func() {
			out := replaceImageTags("Intro ## Topic [IMAGE: a sunset] more text [IMAGE: a beach]")
			So(out, ShouldEqual, "Intro ## Topic "+ImagesPlaceholder+" more text ")
		})

		Convey("没有指令时原样返回", func() {
			out := replaceImageTags("texto sem imagens")
			So(out, ShouldEqual, "texto sem imagens")
		})
	})
}

func TestPadDescriptions(t *testing.T) {
	Convey("padDescriptions 补齐描述数量", t, func() {
		Convey("空输入返回 nil", func() {
			So(padDescriptions(nil), ShouldBeNil)
		})

		Convey("1条补到3条，重复最后一条", func() {
			out := padDescriptions([]string{"gato"})
			So(out, ShouldResemble, []string{"gato", "gato", "gato"})
		})

		Convey("2条补到3条", func() {
			out := padDescriptions([]string{"gato", "cão"})
			So(out, ShouldResemble, []string{"gato", "cão", "cão"})
		})

		Convey("3到6条保持不变", func() {
			in := []string{"a", "b", "c", "d"}
			So(padDescriptions(in), ShouldResemble, in)
		})

		Convey("超过6条截断", func() {
			in := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
			out := padDescriptions(in)
			So(out, ShouldHaveLength, 6)
			So(out[5], ShouldEqual, "f")
		})
	})
}

func TestIsImageRequest(t *testing.T) {
	Convey("isImageRequest 识别图片触发短语", t, func() {
		Convey("命中的输入", func() {
			hits := []string{
				"pode gerar imagem de um pôr do sol?",
				"Crie uma imagem de um robô",
				"DESENHE um castelo",
				"mostre uma imagem do mar",
				"quero uma foto de família",
				"uma imagem de Maputo",
				"please generate image of a cat",
				"create image with mountains",
			}
			for _, text := range hits {
				So(isImageRequest(text), ShouldBeTrue)
			}
		})

		Convey("不命中的输入", func() {
			misses := []string{
				"qual é a capital de Moçambique?",
				"fale sobre fotografia",
				"",
			}
			for _, text := range misses {
				So(isImageRequest(text), ShouldBeFalse)
			}
		})
	})
}
