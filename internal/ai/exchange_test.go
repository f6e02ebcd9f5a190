package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/config"
	"mango/internal/model"
	"mango/internal/pkg/gemini"
)

func testConfig(baseURL string) *config.GeminiConfig {
	return &config.GeminiConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		PreciseModel:    "modelo-preciso",
		CreativeModel:   "modelo-criativo",
		ImageModel:      "modelo-imagem",
		MaxOutputTokens: 4096,
		EnableSearch:    true,
	}
}

func TestProfile(t *testing.T) {
	Convey("profile 按模式选择模型和采样参数", t, func() {
		client := NewClient(testConfig(""))

		Convey("精确模式", func() {
			name, cfg := client.profile(model.ModePrecise)
			So(name, ShouldEqual, "modelo-preciso")
			So(*cfg.Temperature, ShouldEqual, 0.2)
			So(*cfg.TopP, ShouldEqual, 0.8)
			So(*cfg.TopK, ShouldEqual, 20)
			So(*cfg.MaxOutputTokens, ShouldEqual, 4096)
		})

		Convey("创意模式", func() {
			name, cfg := client.profile(model.ModeCreative)
			So(name, ShouldEqual, "modelo-criativo")
			So(*cfg.Temperature, ShouldEqual, 0.9)
			So(*cfg.TopP, ShouldEqual, 0.95)
			So(*cfg.TopK, ShouldEqual, 40)
		})

		Convey("未知模式回退到精确模式", func() {
			name, cfg := client.profile("qualquer")
			So(name, ShouldEqual, "modelo-preciso")
			So(*cfg.Temperature, ShouldEqual, 0.2)
		})

		Convey("空模式使用精确模式", func() {
			name, _ := client.profile("")
			So(name, ShouldEqual, "modelo-preciso")
		})
	})
}

func TestBuildRequest(t *testing.T) {
	Convey("buildRequest 组装线上请求", t, func() {
		client := NewClient(testConfig(""))

		Convey("历史 + 当前输入按顺序排列", func() {
			req, _ := client.buildRequest(&ExchangeRequest{
				History: []model.Message{
					{Role: model.RoleUser, Text: "oi"},
					{Role: model.RoleModel, Text: "olá!"},
				},
				Text: "como vai?",
			})

			So(req.Contents, ShouldHaveLength, 3)
			So(req.Contents[0].Role, ShouldEqual, "user")
			So(req.Contents[0].Parts[0].Text, ShouldEqual, "oi")
			So(req.Contents[1].Role, ShouldEqual, "model")
			So(req.Contents[2].Role, ShouldEqual, "user")
			So(req.Contents[2].Parts[0].Text, ShouldEqual, "como vai?")
		})

		Convey("默认系统指令", func() {
			req, _ := client.buildRequest(&ExchangeRequest{Text: "oi"})
			So(req.SystemInstruction, ShouldNotBeNil)
			So(req.SystemInstruction.Parts[0].Text, ShouldEqual, defaultSystemInstruction)
		})

		Convey("自定义系统指令覆盖默认", func() {
			req, _ := client.buildRequest(&ExchangeRequest{
				Text:              "oi",
				SystemInstruction: "Responda apenas em inglês.",
			})
			So(req.SystemInstruction.Parts[0].Text, ShouldEqual, "Responda apenas em inglês.")
		})

		Convey("搜索开启时挂载 googleSearch 工具", func() {
			req, _ := client.buildRequest(&ExchangeRequest{Text: "oi"})
			So(req.Tools, ShouldHaveLength, 1)
			So(req.Tools[0].GoogleSearch, ShouldNotBeNil)
		})

		Convey("data URI 图片转为 inlineData", func() {
			req, _ := client.buildRequest(&ExchangeRequest{
				Text:   "o que é isto?",
				Images: []string{"data:image/png;base64,aW1n"},
			})

			parts := req.Contents[0].Parts
			So(parts, ShouldHaveLength, 2)
			So(parts[0].Text, ShouldEqual, "o que é isto?")
			So(parts[1].InlineData, ShouldNotBeNil)
			So(parts[1].InlineData.MimeType, ShouldEqual, "image/png")
			So(parts[1].InlineData.Data, ShouldEqual, "aW1n")
		})

		Convey("http URL 图片不内联", func() {
			req, _ := client.buildRequest(&ExchangeRequest{
				Text:   "oi",
				Images: []string{"http://example.com/img.png"},
			})
			So(req.Contents[0].Parts, ShouldHaveLength, 1)
		})

		Convey("历史消息的图片重新附上", func() {
			req, _ := client.buildRequest(&ExchangeRequest{
				History: []model.Message{
					{Role: model.RoleUser, Text: "veja", Images: []string{"data:image/jpeg;base64,Zm90bw=="}},
				},
				Text: "e agora?",
			})
			So(req.Contents[0].Parts, ShouldHaveLength, 2)
			So(req.Contents[0].Parts[1].InlineData.MimeType, ShouldEqual, "image/jpeg")
		})
	})
}

func TestSend(t *testing.T) {
	Convey("Send 阻塞式交换", t, func() {
		Convey("成功时返回文本、用量和响应时间", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{
					"candidates":[{"content":{"parts":[{"text":"Maputo é a capital."}]}}],
					"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}
				}`)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			result, err := client.Send(context.Background(), &ExchangeRequest{Text: "capital de Moçambique?"})

			So(err, ShouldBeNil)
			So(result.Text, ShouldEqual, "Maputo é a capital.")
			So(result.ModelName, ShouldEqual, "modelo-preciso")
			So(result.Usage.TotalTokens, ShouldEqual, 15)
			So(result.ResponseTimeMs, ShouldBeGreaterThanOrEqualTo, 0)
		})

		Convey("失败时折叠成统一通信错误", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			_, err := client.Send(context.Background(), &ExchangeRequest{Text: "oi"})

			So(err, ShouldEqual, ErrCommunication)
		})

		Convey("提取引用来源，空 URI 丢弃，空标题用默认值", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{
					"candidates":[{
						"content":{"parts":[{"text":"resposta"}]},
						"groundingMetadata":{"groundingChunks":[
							{"web":{"title":"Wikipédia","uri":"https://pt.wikipedia.org"}},
							{"web":{"title":"","uri":"https://example.com"}},
							{"web":{"title":"sem uri","uri":""}}
						]}
					}]
				}`)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			result, err := client.Send(context.Background(), &ExchangeRequest{Text: "oi"})

			So(err, ShouldBeNil)
			So(result.GroundingURLs, ShouldHaveLength, 2)
			So(result.GroundingURLs[0].Title, ShouldEqual, "Wikipédia")
			So(result.GroundingURLs[1].Title, ShouldEqual, "Fonte")
			So(result.GroundingURLs[1].URI, ShouldEqual, "https://example.com")
		})

		Convey("回复中的图片指令触发图片生成", func() {
			var imageCalls int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.Contains(r.URL.Path, "modelo-imagem") {
					imageCalls++
					fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]}}]}`)
					return
				}
				fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Claro! [IMAGE: um gato laranja] Espero que goste."}]}}]}`)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			result, err := client.Send(context.Background(), &ExchangeRequest{Text: "desenha um gato"})

			So(err, ShouldBeNil)
			// 1 条描述补齐到 3 张
			So(imageCalls, ShouldEqual, 3)
			So(result.Images, ShouldHaveLength, 3)
			So(result.Images[0], ShouldEqual, "data:image/png;base64,aW1n")
			So(result.Text, ShouldEqual, "Claro! "+ImagesPlaceholder+" Espero que goste.")
		})

		Convey("图片全部失败时指令仍被替换，图片为空", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.Contains(r.URL.Path, "modelo-imagem") {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"[IMAGE: praia]"}]}}]}`)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			result, err := client.Send(context.Background(), &ExchangeRequest{Text: "praia"})

			So(err, ShouldBeNil)
			So(result.Images, ShouldBeEmpty)
			So(result.Text, ShouldEqual, ImagesPlaceholder)
		})

		Convey("触发短语兜底：回复没有指令也生成图片", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.Contains(r.URL.Path, "modelo-imagem") {
					fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"Zw=="}}]}}]}`)
					return
				}
				fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Não posso desenhar diretamente."}]}}]}`)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			result, err := client.Send(context.Background(), &ExchangeRequest{Text: "crie uma imagem de um dragão"})

			So(err, ShouldBeNil)
			So(result.Images, ShouldHaveLength, 3)
			So(result.Text, ShouldEqual, "Com certeza! Gerei 3 imagem(ns) baseada(s) no seu pedido. "+ImagesPlaceholder)
		})

		Convey("触发短语兜底全部失败时保留原始回复", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.Contains(r.URL.Path, "modelo-imagem") {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Não posso desenhar."}]}}]}`)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			result, err := client.Send(context.Background(), &ExchangeRequest{Text: "gerar imagem de um castelo"})

			So(err, ShouldBeNil)
			So(result.Images, ShouldBeEmpty)
			So(result.Text, ShouldEqual, "Não posso desenhar.")
		})
	})
}

func TestSendStream(t *testing.T) {
	sseBody := func(texts ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, text := range texts {
				payload, _ := json.Marshal(gemini.GenerateContentResponse{
					Candidates: []gemini.Candidate{
						{Content: gemini.Content{Parts: []gemini.Part{{Text: text}}}},
					},
				})
				fmt.Fprintf(w, "data: %s\n\n", payload)
			}
		}
	}

	Convey("SendStream 流式交换", t, func() {
		Convey("片段携带累计文本，终止片段携带最终结果", func() {
			server := httptest.NewServer(sseBody("Hel", "lo", " wor", "ld"))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			ch, err := client.SendStream(context.Background(), &ExchangeRequest{Text: "oi"})
			So(err, ShouldBeNil)

			var chunks []*model.ChatChunk
			for chunk := range ch {
				chunks = append(chunks, chunk)
			}

			// 4 个增量片段 + 1 个终止片段
			So(chunks, ShouldHaveLength, 5)
			So(chunks[0].Text, ShouldEqual, "Hel")
			So(chunks[1].Text, ShouldEqual, "Hello")
			So(chunks[2].Text, ShouldEqual, "Hello wor")
			So(chunks[3].Text, ShouldEqual, "Hello world")

			done := chunks[4]
			So(done.Done, ShouldBeTrue)
			So(done.Text, ShouldEqual, "Hello world")
			So(done.ModelName, ShouldEqual, "modelo-preciso")
		})

		Convey("前序片段文本前缀单调增长", func() {
			server := httptest.NewServer(sseBody("a", "b", "c"))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			ch, err := client.SendStream(context.Background(), &ExchangeRequest{Text: "oi"})
			So(err, ShouldBeNil)

			prev := ""
			for chunk := range ch {
				if chunk.Done {
					continue
				}
				So(strings.HasPrefix(chunk.Text, prev), ShouldBeTrue)
				prev = chunk.Text
			}
			So(prev, ShouldEqual, "abc")
		})

		Convey("打开流失败返回统一通信错误", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			_, err := client.SendStream(context.Background(), &ExchangeRequest{Text: "oi"})

			So(err, ShouldEqual, ErrCommunication)
		})
	})
}
