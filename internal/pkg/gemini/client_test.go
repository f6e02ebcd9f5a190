package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
	})
}

func textResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
}

func TestGenerateContent(t *testing.T) {
	Convey("GenerateContent 阻塞式调用", t, func() {
		Convey("正常响应解析出文本", func() {
			var gotMethod, gotPath, gotKey string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.Path
				gotKey = r.URL.Query().Get("key")

				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{
					"candidates":[{"content":{"role":"model","parts":[{"text":"Olá! "},{"text":"Como posso ajudar?"}]}}],
					"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":8,"totalTokenCount":20}
				}`)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			resp, err := client.GenerateContent(context.Background(), "gemini-3-flash-preview", &GenerateContentRequest{
				Contents: []Content{{Role: "user", Parts: []Part{{Text: "Olá"}}}},
			})

			So(err, ShouldBeNil)
			So(gotMethod, ShouldEqual, http.MethodPost)
			So(gotPath, ShouldEqual, "/models/gemini-3-flash-preview:generateContent")
			So(gotKey, ShouldEqual, "test-key")
			So(resp.Text(), ShouldEqual, "Olá! Como posso ajudar?")
			So(resp.UsageMetadata.TotalTokenCount, ShouldEqual, 20)
		})

		Convey("API 错误透出错误消息", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":{"message":"API key not valid"}}`)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.GenerateContent(context.Background(), "m", &GenerateContentRequest{})

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "API key not valid")
			So(err.Error(), ShouldContainSubstring, "400")
		})

		Convey("没有候选时报错", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"candidates":[]}`)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.GenerateContent(context.Background(), "m", &GenerateContentRequest{})

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no candidates")
		})
	})
}

func TestStreamGenerateContent(t *testing.T) {
	Convey("StreamGenerateContent SSE 流式调用", t, func() {
		Convey("逐片段透出增量文本", func() {
			var gotAlt string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAlt = r.URL.Query().Get("alt")

				w.Header().Set("Content-Type", "text/event-stream")
				for _, text := range []string{"Hel", "lo", " wor", "ld"} {
					fmt.Fprintf(w, "data: %s\n\n", textResponse(text))
				}
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			ch, err := client.StreamGenerateContent(context.Background(), "m", &GenerateContentRequest{})
			So(err, ShouldBeNil)

			var parts []string
			for fragment := range ch {
				So(fragment.Err, ShouldBeNil)
				parts = append(parts, fragment.Text)
			}

			So(gotAlt, ShouldEqual, "sse")
			So(parts, ShouldResemble, []string{"Hel", "lo", " wor", "ld"})
			So(strings.Join(parts, ""), ShouldEqual, "Hello world")
		})

		Convey("跳过格式错误的片段", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, "data: %s\n\n", textResponse("ok"))
				fmt.Fprint(w, "data: {not valid json\n\n")
				fmt.Fprintf(w, "data: %s\n\n", textResponse(" fim"))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			ch, err := client.StreamGenerateContent(context.Background(), "m", &GenerateContentRequest{})
			So(err, ShouldBeNil)

			var parts []string
			for fragment := range ch {
				So(fragment.Err, ShouldBeNil)
				parts = append(parts, fragment.Text)
			}

			So(parts, ShouldResemble, []string{"ok", " fim"})
		})

		Convey("最后一个片段携带用量元数据", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, "data: %s\n\n", textResponse("resposta"))
				fmt.Fprint(w, `data: {"candidates":[{"content":{"parts":[{"text":""}]}}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":3,"totalTokenCount":8}}`)
				fmt.Fprint(w, "\n\n")
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			ch, err := client.StreamGenerateContent(context.Background(), "m", &GenerateContentRequest{})
			So(err, ShouldBeNil)

			var last *StreamFragment
			for fragment := range ch {
				last = fragment
			}

			So(last, ShouldNotBeNil)
			So(last.Usage, ShouldNotBeNil)
			So(last.Usage.TotalTokenCount, ShouldEqual, 8)
		})

		Convey("HTTP 错误在打开流时返回", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.StreamGenerateContent(context.Background(), "m", &GenerateContentRequest{})

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "500")
		})
	})
}

func TestGenerateImage(t *testing.T) {
	Convey("GenerateImage 提取内联图片", t, func() {
		Convey("返回响应中全部内联图片", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{
					"candidates":[{"content":{"parts":[
						{"text":"aqui está"},
						{"inlineData":{"mimeType":"image/png","data":"aW1nMQ=="}},
						{"inlineData":{"mimeType":"image/png","data":"aW1nMg=="}}
					]}}]
				}`)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			images, err := client.GenerateImage(context.Background(), "image-model", "um gato")

			So(err, ShouldBeNil)
			So(images, ShouldHaveLength, 2)
			So(images[0].MimeType, ShouldEqual, "image/png")
			So(images[0].Data, ShouldEqual, "aW1nMQ==")
		})

		Convey("没有图片时返回空", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, textResponse("não consigo gerar"))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			images, err := client.GenerateImage(context.Background(), "image-model", "um gato")

			So(err, ShouldBeNil)
			So(images, ShouldBeEmpty)
		})
	})
}
