package xerrors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   errorResponse
		wantHeader map[string]string
	}{
		{
			name:       "plain error becomes internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   errorResponse{Error: "internal_server_error", Message: "internal server error"},
		},
		{
			name:       "unauthorized with message",
			err:        Unauthorized(WithMessage("invalid signature")),
			wantStatus: http.StatusUnauthorized,
			wantBody:   errorResponse{Error: "unauthorized", Message: "invalid signature"},
		},
		{
			name:       "wrapped error keeps status",
			err:        errors.Join(errors.New("ctx"), NotFound(WithCode("order_not_found"))),
			wantStatus: http.StatusNotFound,
			wantBody:   errorResponse{Error: "order_not_found", Message: "not found"},
		},
		{
			name:       "rate limit headers",
			err:        TooManyRequests(WithRetryAfter(2*time.Second), WithReason("ip_rate_limit")),
			wantStatus: http.StatusTooManyRequests,
			wantBody:   errorResponse{Error: "too_many_requests", Message: "too many requests"},
			wantHeader: map[string]string{"Retry-After": "2", "X-RateLimit-Reason": "ip_rate_limit"},
		},
		{
			name:       "validation fields",
			err:        Validation(map[string]string{"sort": "unsupported"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody: errorResponse{
				Error:   "unprocessable_entity",
				Message: "unprocessable entity",
				Fields:  map[string]string{"sort": "unsupported"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			WriteError(t.Context(), rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var got errorResponse
			if err := go_json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
			for k, v := range tt.wantHeader {
				if h := rec.Header().Get(k); h != v {
					t.Errorf("header %s = %q, want %q", k, h, v)
				}
			}
		})
	}
}
