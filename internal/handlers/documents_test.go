package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/service"
	"helpdesk-kb/internal/service/mocks"
)

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestDocumentHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		body       string
		mockSetup  func(*mocks.MockKnowledgeService)
		wantStatus int
		wantError  string
	}{
		{
			name: "created",
			body: `{"title":"Refund Policy","content":"Refunds take 5-7 business days.","source":"test"}`,
			mockSetup: func(m *mocks.MockKnowledgeService) {
				m.EXPECT().
					AddDocument(gomock.Any(), service.AddDocumentRequest{Title: "Refund Policy", Content: "Refunds take 5-7 business days.", Source: "test"}).
					Return("doc-1", nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid JSON body",
			body:       "not json",
			mockSetup:  func(m *mocks.MockKnowledgeService) {},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name: "validation error",
			body: `{"title":"","content":"x"}`,
			mockSetup: func(m *mocks.MockKnowledgeService) {
				m.EXPECT().AddDocument(gomock.Any(), gomock.Any()).
					Return("", &service.ValidationError{Field: "title", Message: "Title is required"})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Title is required",
		},
		{
			name: "embedding service down",
			body: `{"title":"T","content":"x"}`,
			mockSetup: func(m *mocks.MockKnowledgeService) {
				m.EXPECT().AddDocument(gomock.Any(), gomock.Any()).
					Return("", service.WrapError(service.ErrExternalService, "failed to add document"))
			},
			wantStatus: http.StatusBadGateway,
			wantError:  "External service error",
		},
		{
			name: "store failure",
			body: `{"title":"T","content":"x"}`,
			mockSetup: func(m *mocks.MockKnowledgeService) {
				m.EXPECT().AddDocument(gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to add document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mocks.NewMockKnowledgeService(ctrl)
			tt.mockSetup(m)
			h := NewDocumentHandler(m, 1<<20)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Create(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError != "" {
				resp := decodeError(t, w)
				if resp.OK || resp.Error != tt.wantError {
					t.Errorf("error response = %+v, want error %q", resp, tt.wantError)
				}
				return
			}
			var resp CreateDocumentResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !resp.OK || resp.DocumentID != "doc-1" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

// multipartBody builds a multipart form with one file part and extra fields.
func multipartBody(t *testing.T, fileName, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if fileName != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("CreatePart() error = %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf, mw.FormDataContentType()
}

func TestDocumentHandler_Upload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockKnowledgeService(ctrl)
	h := NewDocumentHandler(m, 10<<20)

	m.EXPECT().UploadFile(gomock.Any(), service.UploadRequest{
		File:       extract.File{Name: "faq.txt", MIMEType: "text/plain", Data: []byte("Q and A")},
		Title:      "FAQ",
		UploadedBy: "agent-3",
	}).Return(&service.UploadResult{DocumentID: "doc-9", Metadata: map[string]any{"fileName": "faq.txt"}}, nil)

	body, ct := multipartBody(t, "faq.txt", "text/plain", []byte("Q and A"), map[string]string{"title": "FAQ", "userId": "agent-3"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.Upload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp CreateDocumentResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.DocumentID != "doc-9" || resp.Message != "Document uploaded and indexed successfully" || resp.Metadata["fileName"] != "faq.txt" {
		t.Errorf("response = %+v", resp)
	}
}

func TestDocumentHandler_Upload_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("missing file", func(t *testing.T) {
		h := NewDocumentHandler(mocks.NewMockKnowledgeService(ctrl), 10<<20)
		body, ct := multipartBody(t, "", "", nil, map[string]string{"title": "x"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.Upload(w, req)

		if w.Code != http.StatusBadRequest || decodeError(t, w).Error != "No valid file provided" {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("unsupported type lists supported types", func(t *testing.T) {
		m := mocks.NewMockKnowledgeService(ctrl)
		h := NewDocumentHandler(m, 10<<20)
		m.EXPECT().UploadFile(gomock.Any(), gomock.Any()).
			Return(nil, &service.ValidationError{Field: "file", Message: "unsupported", Err: extract.ErrUnsupportedType})
		m.EXPECT().SupportedFileTypes().Return([]string{"text/plain"})

		body, ct := multipartBody(t, "a.png", "image/png", []byte("png"), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.Upload(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		resp := decodeError(t, w)
		if resp.Error != "Unsupported file type: image/png" {
			t.Errorf("error = %q", resp.Error)
		}
		details, ok := resp.Details.(map[string]any)
		if !ok || details["supportedTypes"] == nil {
			t.Errorf("details = %v", resp.Details)
		}
	})

	t.Run("no extractable text", func(t *testing.T) {
		m := mocks.NewMockKnowledgeService(ctrl)
		h := NewDocumentHandler(m, 10<<20)
		m.EXPECT().UploadFile(gomock.Any(), gomock.Any()).
			Return(nil, &service.ValidationError{Field: "file", Message: service.NoTextMessage})

		body, ct := multipartBody(t, "scan.pdf", "application/pdf", []byte("%PDF"), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.Upload(w, req)

		if w.Code != http.StatusBadRequest || decodeError(t, w).Error != service.NoTextMessage {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		h := NewDocumentHandler(mocks.NewMockKnowledgeService(ctrl), 10)
		body, ct := multipartBody(t, "big.txt", "text/plain", bytes.Repeat([]byte("x"), 2<<20), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.Upload(w, req)

		if w.Code != http.StatusBadRequest || !strings.HasPrefix(decodeError(t, w).Error, "File too large") {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	})
}

func TestDocumentHandler_Batch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockKnowledgeService(ctrl)
	h := NewDocumentHandler(m, 0)

	m.EXPECT().BatchUpload(gomock.Any(), []service.BatchItem{
		{Title: "A", Content: "alpha"},
		{Title: "B"},
	}).Return(&service.BatchResult{
		Total:     2,
		Succeeded: 1,
		Results: []service.BatchItemResult{
			{Title: "A", DocumentID: "d-a", Success: true},
			{Title: "B", Success: false, Error: "Content is required"},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/batch",
		strings.NewReader(`{"documents":[{"title":"A","content":"alpha"},{"title":"B"}]}`))
	w := httptest.NewRecorder()
	h.Batch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp BatchUploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "Batch upload completed: 1/2 successful" || len(resp.Results) != 2 || resp.Results[1].Title != "B" {
		t.Errorf("response = %+v", resp)
	}

	m.EXPECT().BatchUpload(gomock.Any(), gomock.Len(0)).
		Return(nil, &service.ValidationError{Field: "documents", Message: "Documents array is required"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/documents/batch", strings.NewReader(`{"documents":[]}`))
	w = httptest.NewRecorder()
	h.Batch(w, req)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Error != "Documents array is required" {
		t.Errorf("empty batch: status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestDocumentHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockKnowledgeService(ctrl)
	h := NewDocumentHandler(m, 0)

	long := strings.Repeat("é", 250)
	m.EXPECT().ListDocuments(gomock.Any()).Return([]service.Document{
		{ID: "d2", Title: "Long", Content: long, CreatedAt: time.Now()},
		{ID: "d1", Title: "Short", Content: "short text"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	var resp ListDocumentsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Count != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Documents[0].Preview != strings.Repeat("é", PreviewLength)+"..." {
		t.Errorf("long preview = %q", resp.Documents[0].Preview)
	}
	if resp.Documents[1].Preview != "short text" {
		t.Errorf("short preview = %q", resp.Documents[1].Preview)
	}
}

func TestDocumentHandler_GetAndDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockKnowledgeService(ctrl)
	h := NewDocumentHandler(m, 0)

	m.EXPECT().GetDocument(gomock.Any(), "d1").Return(&service.Document{ID: "d1", Title: "Refunds"}, nil)
	w := httptest.NewRecorder()
	h.Get(w, withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/documents/d1", nil), "id", "d1"))
	if w.Code != http.StatusOK {
		t.Errorf("Get status = %d", w.Code)
	}

	m.EXPECT().GetDocument(gomock.Any(), "nope").Return(nil, service.ErrNotFound)
	w = httptest.NewRecorder()
	h.Get(w, withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope", nil), "id", "nope"))
	if w.Code != http.StatusNotFound || decodeError(t, w).Error != "Document not found" {
		t.Errorf("Get(missing) status = %d, body %s", w.Code, w.Body.String())
	}

	m.EXPECT().DeleteDocument(gomock.Any(), "d1").Return(true)
	w = httptest.NewRecorder()
	h.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/d1", nil), "id", "d1"))
	var del DeleteDocumentResponse
	if err := json.NewDecoder(w.Body).Decode(&del); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if w.Code != http.StatusOK || del.DocumentID != "d1" || del.Message != "Document deleted successfully" {
		t.Errorf("Delete = %d %+v", w.Code, del)
	}

	m.EXPECT().DeleteDocument(gomock.Any(), "nope").Return(false)
	w = httptest.NewRecorder()
	h.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/nope", nil), "id", "nope"))
	if w.Code != http.StatusInternalServerError || decodeError(t, w).Error != "Failed to delete document" {
		t.Errorf("Delete(failure) status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: ""},
		{name: "exactly limit", content: strings.Repeat("a", PreviewLength), want: strings.Repeat("a", PreviewLength)},
		{name: "over limit", content: strings.Repeat("a", PreviewLength+1), want: strings.Repeat("a", PreviewLength) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preview(tt.content); got != tt.want {
				t.Errorf("preview() = %q, want %q", got, tt.want)
			}
		})
	}
}
