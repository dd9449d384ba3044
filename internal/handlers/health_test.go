package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	vectorstore_mocks "helpdesk-kb/internal/vectorstore/mocks"
)

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error {
	return p.err
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		method     string
		pingErr    error
		mockSetup  func(*vectorstore_mocks.MockVectorStore)
		wantStatus int
		wantIssues []string
	}{
		{
			name:   "healthy",
			method: http.MethodGet,
			mockSetup: func(m *vectorstore_mocks.MockVectorStore) {
				m.EXPECT().CollectionExists(gomock.Any(), "knowledge").Return(true, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:    "database down",
			method:  http.MethodGet,
			pingErr: errors.New("database is closed"),
			mockSetup: func(m *vectorstore_mocks.MockVectorStore) {
				m.EXPECT().CollectionExists(gomock.Any(), "knowledge").Return(true, nil)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantIssues: []string{"database_unavailable"},
		},
		{
			name:   "collection missing",
			method: http.MethodGet,
			mockSetup: func(m *vectorstore_mocks.MockVectorStore) {
				m.EXPECT().CollectionExists(gomock.Any(), "knowledge").Return(false, nil)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantIssues: []string{"vector_store_unavailable"},
		},
		{
			name:   "vector store error",
			method: http.MethodGet,
			mockSetup: func(m *vectorstore_mocks.MockVectorStore) {
				m.EXPECT().CollectionExists(gomock.Any(), "knowledge").Return(false, errors.New("connection refused"))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantIssues: []string{"vector_store_unavailable"},
		},
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			mockSetup:  func(m *vectorstore_mocks.MockVectorStore) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := vectorstore_mocks.NewMockVectorStore(ctrl)
			tt.mockSetup(vs)
			h := NewHealthHandler(fakePinger{err: tt.pingErr}, vs, "qdrant", "knowledge")

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.method != http.MethodGet {
				return
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Backend != "qdrant" {
				t.Errorf("Backend = %q", resp.Backend)
			}
			if len(resp.Issues) != len(tt.wantIssues) {
				t.Fatalf("Issues = %v, want %v", resp.Issues, tt.wantIssues)
			}
			for i := range tt.wantIssues {
				if resp.Issues[i] != tt.wantIssues[i] {
					t.Errorf("Issues[%d] = %q, want %q", i, resp.Issues[i], tt.wantIssues[i])
				}
			}
		})
	}
}
