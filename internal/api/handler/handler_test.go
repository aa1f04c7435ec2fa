package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/verifica/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/liveness"
	"github.com/saturnino-fabrica-de-software/verifica/internal/service"
)

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Verify(ctx context.Context, req service.VerifyRequest) (domain.VerificationResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.VerificationResult), args.Error(1)
}

func (m *MockVerificationService) Compare(ctx context.Context, imageA, imageB []byte) (domain.Comparison, error) {
	args := m.Called(ctx, imageA, imageB)
	return args.Get(0).(domain.Comparison), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) ProcessDocument(ctx context.Context, front, back []byte, strict bool) (domain.ProcessedDocument, error) {
	args := m.Called(ctx, front, back, strict)
	return args.Get(0).(domain.ProcessedDocument), args.Error(1)
}

type MockPassiveService struct {
	mock.Mock
}

func (m *MockPassiveService) PassiveCheck(ctx context.Context, frames [][]byte) (liveness.PassiveResult, error) {
	args := m.Called(ctx, frames)
	return args.Get(0).(liveness.PassiveResult), args.Error(1)
}

type stubModel bool

func (s stubModel) DeepAvailable(context.Context) bool { return bool(s) }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type part struct {
	field       string
	content     []byte
	contentType string
}

func imagePart(field, content string) part {
	return part{field: field, content: []byte(content), contentType: "image/jpeg"}
}

// multipartRequest builds a POST with the given file parts and plain fields
func multipartRequest(t *testing.T, target string, parts []part, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.field+`.jpg"`)
		h.Set("Content-Type", p.contentType)

		w, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, _ = w.Write(p.content)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestFaceHandler_Verify(t *testing.T) {
	tests := []struct {
		name       string
		parts      []part
		fields     map[string]string
		setupMock  func(*MockVerificationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "successful verification",
			parts: []part{
				imagePart("document_face", "doc"),
				imagePart("selfie_near", "near"),
				imagePart("selfie_far", "far"),
			},
			fields: map[string]string{"curp": "garc850101hdfrrl09", "nombre_completo": " JUAN "},
			setupMock: func(m *MockVerificationService) {
				m.On("Verify", mock.Anything, mock.MatchedBy(func(req service.VerifyRequest) bool {
					return string(req.DocumentFace) == "doc" &&
						string(req.SelfieNear) == "near" &&
						string(req.SelfieFar) == "far" &&
						req.Person.CURP == "GARC850101HDFRRL09" &&
						req.Person.FullName == "JUAN" &&
						req.AttemptID != ""
				})).Return(domain.VerificationResult{Match: true, Tier: domain.TierAlta, Message: "ok"}, nil)
			},
			wantStatus: 200,
		},
		{
			name: "missing selfie",
			parts: []part{
				imagePart("document_face", "doc"),
				imagePart("selfie_near", "near"),
			},
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name: "unsupported content type",
			parts: []part{
				{field: "document_face", content: []byte("doc"), contentType: "application/pdf"},
				imagePart("selfie_near", "near"),
				imagePart("selfie_far", "far"),
			},
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "INVALID_IMAGE",
		},
		{
			name: "service timeout",
			parts: []part{
				imagePart("document_face", "doc"),
				imagePart("selfie_near", "near"),
				imagePart("selfie_far", "far"),
			},
			setupMock: func(m *MockVerificationService) {
				m.On("Verify", mock.Anything, mock.Anything).
					Return(domain.VerificationResult{}, domain.ErrProcessingTimeout)
			},
			wantStatus: 408,
			wantCode:   "PROCESSING_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockVerificationService)
			tt.setupMock(svc)

			app := newTestApp()
			app.Post("/v1/verifications", NewFaceHandler(svc, testLogger()).Verify)

			resp, err := app.Test(multipartRequest(t, "/v1/verifications", tt.parts, tt.fields))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				var body struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				decode(t, resp, &body)
				assert.Equal(t, tt.wantCode, body.Error.Code)
			} else {
				var result domain.VerificationResult
				decode(t, resp, &result)
				assert.True(t, result.Match)
				assert.Equal(t, domain.TierAlta, result.Tier)
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestFaceHandler_Compare(t *testing.T) {
	svc := new(MockVerificationService)
	svc.On("Compare", mock.Anything, []byte("a"), []byte("b")).
		Return(domain.Comparison{Similarity: 0.83, Strategy: domain.StrategyDeep}, nil)

	app := newTestApp()
	app.Post("/v1/faces/compare", NewFaceHandler(svc, testLogger()).Compare)

	resp, err := app.Test(multipartRequest(t, "/v1/faces/compare", []part{
		imagePart("image_a", "a"),
		imagePart("image_b", "b"),
	}, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var cmp domain.Comparison
	decode(t, resp, &cmp)
	assert.InDelta(t, 0.83, cmp.Similarity, 1e-9)
	assert.Equal(t, domain.StrategyDeep, cmp.Strategy)
}

func TestDocumentHandler_Process(t *testing.T) {
	t.Run("lenient", func(t *testing.T) {
		svc := new(MockDocumentService)
		svc.On("ProcessDocument", mock.Anything, []byte("front"), []byte("back"), false).
			Return(domain.ProcessedDocument{
				Front:      domain.DocumentFields{CURP: "GARC850101HDFRRL09"},
				Validation: domain.ValidationResult{Valid: true, CURPMatches: true, ElectorKeyMatches: true},
			}, nil)

		app := newTestApp()
		app.Post("/v1/documents", NewDocumentHandler(svc, testLogger()).Process)

		resp, err := app.Test(multipartRequest(t, "/v1/documents", []part{
			imagePart("front", "front"),
			imagePart("back", "back"),
		}, nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]map[string]interface{}
		decode(t, resp, &body)
		assert.Equal(t, "GARC850101HDFRRL09", body["frente"]["curp"])
		assert.Equal(t, true, body["validacion"]["es_valida"])
	})

	t.Run("strict mismatch", func(t *testing.T) {
		svc := new(MockDocumentService)
		svc.On("ProcessDocument", mock.Anything, []byte("front"), []byte("back"), true).
			Return(domain.ProcessedDocument{}, domain.ErrInconsistentDocumentData.WithError(errors.New("La CURP no coincide")))

		app := newTestApp()
		app.Post("/v1/documents", NewDocumentHandler(svc, testLogger()).Process)

		resp, err := app.Test(multipartRequest(t, "/v1/documents?strict=true", []part{
			imagePart("front", "front"),
			imagePart("back", "back"),
		}, nil))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
	})
}

func TestLivenessHandler_Passive(t *testing.T) {
	svc := new(MockPassiveService)
	svc.On("PassiveCheck", mock.Anything, mock.MatchedBy(func(frames [][]byte) bool {
		return len(frames) == 5 && string(frames[0]) == "f0" && string(frames[4]) == "f4"
	})).Return(liveness.PassiveResult{Passed: true, Variance: 0.004, Frames: 5, ValidFrames: 5}, nil)

	app := newTestApp()
	app.Post("/v1/liveness/passive", NewLivenessHandler(svc, testLogger()).Passive)

	parts := make([]part, 5)
	for i := range parts {
		parts[i] = imagePart("frames", "f"+string(rune('0'+i)))
	}

	resp, err := app.Test(multipartRequest(t, "/v1/liveness/passive", parts, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var res liveness.PassiveResult
	decode(t, resp, &res)
	assert.True(t, res.Passed)
	assert.Equal(t, 5, res.ValidFrames)
	svc.AssertExpectations(t)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		model      ModelChecker
		db         Pinger
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "model available without cache",
			model:      stubModel(true),
			wantStatus: "ready",
			wantChecks: map[string]string{"embedding_model": "available"},
		},
		{
			name:       "model unavailable",
			model:      stubModel(false),
			db:         stubPinger{},
			wantStatus: "degraded",
			wantChecks: map[string]string{"embedding_model": "unavailable", "embedding_cache": "available"},
		},
		{
			name:       "cache down",
			model:      stubModel(true),
			db:         stubPinger{err: errors.New("refused")},
			wantStatus: "degraded",
			wantChecks: map[string]string{"embedding_model": "available", "embedding_cache": "unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.model, tt.db, "1.0.0")
			app := newTestApp()
			app.Get("/health", h.Health)
			app.Get("/ready", h.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			var health HealthResponse
			decode(t, resp, &health)
			assert.Equal(t, "ok", health.Status)
			assert.Equal(t, "1.0.0", health.Version)

			resp, err = app.Test(httptest.NewRequest("GET", "/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			var ready HealthResponse
			decode(t, resp, &ready)
			assert.Equal(t, tt.wantStatus, ready.Status)
			assert.Equal(t, tt.wantChecks, ready.Checks)
		})
	}
}
