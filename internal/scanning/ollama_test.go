package scanning

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

var _ = Describe("Ollama", func() {
	var (
		server    *ghttp.Server
		ctx       context.Context
		decoder   *Ollama
		detection *Detection
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		ctx = context.Background()
		decoder, err = NewOllama(server.URL()+"/", "qwen2.5vl", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		detection, err = decoder.Decode(ctx, whiteImage(64, 48))
	})

	When("the model reads a barcode", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var body ollamaChatRequest
					Expect(decodeJSON(r, &body)).To(Succeed())
					Expect(body.Model).To(Equal("qwen2.5vl"))
					Expect(body.Stream).To(BeFalse())
					Expect(body.Messages).To(HaveLen(2))
					Expect(body.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: `{"barcode": "5000112637922", "type": "EAN_13"}`},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the detection", func() {
			Expect(detection).To(Equal(&Detection{Value: "5000112637922", Symbology: "EAN_13"}))
		})
	})

	When("the model sees no barcode", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: `{"barcode": null}`},
				Done:    true,
			}))
		})

		It("should report no detection", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(detection).To(BeNil())
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(detection).To(BeNil())
		})
	})

	When("the model answers with prose", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "There is a barcode but I cannot read it"},
				Done:    true,
			}))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("parsing barcode data")))
		})
	})

	When("the scan is cancelled before the call", func() {
		BeforeEach(func() {
			cancelled, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = cancelled
		})

		It("should not call the API", func() {
			Expect(err).To(MatchError(context.Canceled))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})
})
