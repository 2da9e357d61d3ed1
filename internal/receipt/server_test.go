package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/bharathkumarkammari/Receipt-Parser/internal/parsing"
)

func uploadBody(filename, contentType string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

func decodeJSON(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, v)).To(Succeed(), string(body))
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		service     *Service
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = &mockExtractor{text: sampleReceiptText}
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service = NewServiceWithDeps(db, extractor, storage, &mockIDGenerator{id: "f00d"},
			&mockTimeSource{now: time.Date(2024, 12, 26, 10, 0, 0, 0, time.UTC)})
		server := NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("GET /", func() {
		It("serves the page", func() {
			resp := do("GET", "/", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Receipt Parser"))
		})

		It("rejects other methods", func() {
			resp := do("POST", "/", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})

		It("sets CORS headers", func() {
			resp := do("GET", "/", nil, "")
			resp.Body.Close()
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("OPTIONS preflight", func() {
		It("answers without a body", func() {
			resp := do("OPTIONS", "/api/receipts", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})

	Describe("POST /api/receipts", func() {
		var (
			filename    string
			contentType string
			resp        *http.Response
		)

		BeforeEach(func() {
			filename = "dec.pdf"
			contentType = "application/pdf"
		})

		JustBeforeEach(func() {
			body, formType := uploadBody(filename, contentType, []byte("%PDF-1.4"))
			resp = do("POST", "/api/receipts", body, formType)
		})

		When("the upload parses", func() {
			It("returns the created receipt", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var got Receipt
				decodeJSON(resp, &got)
				Expect(got.ID).To(Equal(uint64(1)))
				Expect(got.Items).To(HaveLen(2))
				Expect(got.Items[0].FinalPrice.StringFixed(2)).To(Equal("4.99"))
				Expect(got.Subtotal.Decimal.StringFixed(2)).To(Equal("13.48"))
			})
		})

		When("the part has no content type", func() {
			BeforeEach(func() {
				filename = "photo.HEIC"
				contentType = ""
			})

			It("infers it from the extension", func() {
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(extractor.lastType).To(Equal("image/heic"))
			})
		})

		When("no items are recognized", func() {
			BeforeEach(func() {
				extractor.text = "THANK YOU"
			})

			It("returns 400 with a message", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				var got map[string]string
				decodeJSON(resp, &got)
				Expect(got["error"]).To(ContainSubstring("valid receipt"))
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				extractor.err = errors.New("ocr timeout")
			})

			It("returns 400 with the error", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				var got map[string]string
				decodeJSON(resp, &got)
				Expect(got["error"]).To(ContainSubstring("ocr timeout"))
			})
		})
	})

	Describe("POST /api/receipts without a file", func() {
		It("returns 400", func() {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			Expect(writer.WriteField("note", "no file")).To(Succeed())
			Expect(writer.Close()).To(Succeed())

			resp := do("POST", "/api/receipts", body, writer.FormDataContentType())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var got map[string]string
			decodeJSON(resp, &got)
			Expect(got["error"]).To(ContainSubstring("No file"))
		})
	})

	Describe("GET /api/receipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(&Receipt{Filename: "a.pdf"})).To(Succeed())
				Expect(db.SaveReceipt(&Receipt{Filename: "b.pdf"})).To(Succeed())
			})

			It("returns them as JSON", func() {
				resp := do("GET", "/api/receipts", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
				var got []*Receipt
				decodeJSON(resp, &got)
				Expect(got).To(HaveLen(2))
				Expect(got[1].Filename).To(Equal("b.pdf"))
			})
		})

		When("no receipts exist", func() {
			It("returns an empty array", func() {
				resp := do("GET", "/api/receipts", nil, "")
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		BeforeEach(func() {
			Expect(db.SaveReceipt(&Receipt{Filename: "a.pdf"})).To(Succeed())
		})

		It("returns the receipt", func() {
			resp := do("GET", "/api/receipts/1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var got Receipt
			decodeJSON(resp, &got)
			Expect(got.Filename).To(Equal("a.pdf"))
		})

		It("returns 404 for unknown ids", func() {
			resp := do("GET", "/api/receipts/2", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for malformed ids", func() {
			resp := do("GET", "/api/receipts/abc", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/receipts/{id}/file", func() {
		BeforeEach(func() {
			storage.files["f00d_a.png"] = []byte("png bytes")
			Expect(db.SaveReceipt(&Receipt{Filename: "a.png", StoredFile: "f00d_a.png", ContentType: "image/png"})).To(Succeed())
		})

		It("returns the original upload", func() {
			resp := do("GET", "/api/receipts/1/file", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("png bytes"))
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		BeforeEach(func() {
			Expect(db.SaveReceipt(&Receipt{Filename: "a.pdf", StoredFile: "x_a.pdf"})).To(Succeed())
		})

		It("returns 204 and removes the receipt", func() {
			resp := do("DELETE", "/api/receipts/1", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.receipts).To(BeEmpty())
		})

		It("returns 404 for unknown ids", func() {
			resp := do("DELETE", "/api/receipts/9", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/receipts", func() {
		BeforeEach(func() {
			Expect(db.SaveReceipt(&Receipt{Filename: "a.pdf", StoredFile: "x_a.pdf"})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{Filename: "b.pdf", StoredFile: "x_b.pdf"})).To(Succeed())
		})

		It("clears everything", func() {
			resp := do("DELETE", "/api/receipts", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.receipts).To(BeEmpty())
			Expect(storage.deleted).To(ConsistOf("x_a.pdf", "x_b.pdf"))
		})
	})

	Describe("POST /api/parse", func() {
		It("returns the parsed record", func() {
			resp := do("POST", "/api/parse", strings.NewReader(sampleReceiptText), "text/plain")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var got parsing.Record
			decodeJSON(resp, &got)
			Expect(got.Items).To(HaveLen(2))
			Expect(got.TotalValid).To(HaveValue(BeTrue()))
			Expect(db.receipts).To(BeEmpty())
		})

		It("returns 400 for an empty body", func() {
			resp := do("POST", "/api/parse", strings.NewReader("   "), "text/plain")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/export.xlsx", func() {
		It("downloads a workbook", func() {
			resp := do("GET", "/api/export.xlsx", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal(xlsxContentType))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("receipts.xlsx"))
		})
	})

	Describe("GET /metrics", func() {
		It("exposes the counters", func() {
			body, formType := uploadBody("dec.pdf", "application/pdf", []byte("%PDF"))
			do("POST", "/api/receipts", body, formType).Body.Close()

			resp := do("GET", "/metrics", nil, "")
			defer resp.Body.Close()
			text, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(text)).To(ContainSubstring("receipt_parser_items_per_receipt_count 1"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("accepts the configured credentials", func() {
			resp := do("GET", "/api/receipts", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects requests without credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("rejects wrong passwords", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "wrong")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
