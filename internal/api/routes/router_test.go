package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KokiWakatsuki/lingua-path/back/internal/api/handlers"
	"github.com/KokiWakatsuki/lingua-path/back/internal/clients"
	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
	"github.com/KokiWakatsuki/lingua-path/back/internal/ratelimit"
	"github.com/KokiWakatsuki/lingua-path/back/internal/repositories"
	"github.com/KokiWakatsuki/lingua-path/back/internal/services"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

const courseJSON = `{
  "courseName": "French Basics",
  "learningObjectives": {"shortTerm": ["greet"], "longTerm": ["chat"]},
  "modules": [
    {"id": "m1", "name": "Hello", "order": 1, "estimatedDuration": 60, "tasks": [
      {"name": "Greetings", "taskType": "vocabulary", "difficultyLevel": 1, "estimatedDuration": 10,
       "content": {"instructions": "repeat", "materials": []}, "scoringCriteria": {"maxScore": 10, "criteria": []}},
      {"name": "Small talk", "taskType": "speaking", "difficultyLevel": 2, "estimatedDuration": 10,
       "content": {"instructions": "talk", "materials": []}, "scoringCriteria": {"maxScore": 10, "criteria": []}}
    ]}
  ]
}`

type stubProvider struct {
	content string
	err     error
	health  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.AIResponse{
		Content:  p.content,
		Provider: "stub",
		Model:    "stub-1",
		Usage:    models.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (p *stubProvider) HealthCheck(ctx context.Context) error { return p.health }

func newTestRouter(c *qt.C, provider *stubProvider, rpm int) *gin.Engine {
	gin.SetMode(gin.TestMode)

	courses := repositories.NewMemoryCourseRepository()
	users := repositories.NewMemoryUserRepository(filepath.Join(c.TempDir(), "none.csv"))
	interactions := repositories.NewMemoryInteractionRepository()

	registry := prometheus.NewRegistry()
	metrics := services.NewMetricsCollector(nil)
	registry.MustRegister(metrics)

	orchestrator := services.NewAIOrchestrator(services.OrchestratorDeps{
		Providers:    []clients.Provider{provider},
		Limiter:      ratelimit.NewMemoryLimiter(rpm, nil),
		Interactions: interactions,
		Metrics:      metrics,
	}, services.OrchestratorConfig{})
	courseService := services.NewCourseService(orchestrator, courses, users, utils.NewPromptLoader(""), metrics)

	return NewRouter(
		handlers.NewCourseHandler(courseService),
		handlers.NewUsageHandler(services.NewUsageService(interactions)),
		handlers.NewChatHandler(orchestrator),
		handlers.NewHealthHandler(orchestrator),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		[]string{"http://localhost:3000"},
	)
}

func do(router http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(c *qt.C, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil, qt.Commentf("%s", rec.Body.String()))
	return body
}

func TestGenerateCourseEndpoint(t *testing.T) {
	c := qt.New(t)
	router := newTestRouter(c, &stubProvider{content: courseJSON}, 10)

	rec := do(router, http.MethodPost, "/api/courses/generate", "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusCreated, qt.Commentf("%s", rec.Body.String()))

	var resp models.GenerateCourseResponse
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	c.Assert(resp.Success, qt.IsTrue)
	c.Assert(resp.Status, qt.Equals, "completed")
	c.Assert(resp.CourseID, qt.Not(qt.Equals), int64(0))
	c.Assert(resp.Course.TotalLessons, qt.Equals, 2)
	c.Assert(resp.Course.EstimatedDurationWeeks, qt.Equals, 1)
	c.Assert(resp.Course.Modules[0].Tasks[1].TaskType, qt.Equals, "conversation")

	// the course is readable by its owner only
	path := "/api/courses/" + jsonNumber(resp.CourseID)
	rec = do(router, http.MethodGet, path, "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	var detail models.CourseDetailResponse
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &detail), qt.IsNil)
	c.Assert(detail.Course.Name, qt.Equals, "French Basics")
	c.Assert(detail.Tasks, qt.HasLen, 2)
	c.Assert(detail.Tasks[1].OrderIndex, qt.Equals, 2)

	rec = do(router, http.MethodGet, path, "2", "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)

	rec = do(router, http.MethodGet, "/api/courses", "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(decodeBody(c, rec)["courses"], qt.HasLen, 1)

	rec = do(router, http.MethodGet, "/api/ai/usage", "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	usage := decodeBody(c, rec)["usage"].(map[string]interface{})
	c.Assert(usage["requests"], qt.Equals, float64(1))
	c.Assert(usage["total_tokens"], qt.Equals, float64(30))
}

func TestGenerateCourseWithOverrides(t *testing.T) {
	c := qt.New(t)
	router := newTestRouter(c, &stubProvider{content: courseJSON}, 10)

	rec := do(router, http.MethodPost, "/api/courses/generate", "1", `{"goals": {"target_language": "Italian"}}`)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated, qt.Commentf("%s", rec.Body.String()))

	rec = do(router, http.MethodPost, "/api/courses/generate", "1", `{"goals": {"daily_time_commitment": 5000}}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeBody(c, rec)["code"], qt.Equals, "invalid_goals")

	rec = do(router, http.MethodPost, "/api/courses/generate", "1", `{"goals":`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
}

func TestGenerateCourseErrors(t *testing.T) {
	tests := []struct {
		about    string
		provider *stubProvider
		userID   string
		status   int
		code     string
	}{{
		about:    "missing identity",
		provider: &stubProvider{content: courseJSON},
		status:   http.StatusUnauthorized,
	}, {
		about:    "unknown user",
		provider: &stubProvider{content: courseJSON},
		userID:   "404",
		status:   http.StatusNotFound,
		code:     "not_found",
	}, {
		about:    "providers down",
		provider: &stubProvider{err: clients.NewProviderError("stub", http.StatusServiceUnavailable, "down")},
		userID:   "1",
		status:   http.StatusBadGateway,
		code:     "ai_unavailable",
	}, {
		about:    "unparsable course",
		provider: &stubProvider{content: "I cannot help with that"},
		userID:   "1",
		status:   http.StatusUnprocessableEntity,
		code:     "generation_parse",
	}, {
		about:    "invalid course",
		provider: &stubProvider{content: `{"courseName": "x", "learningObjectives": {}, "modules": []}`},
		userID:   "1",
		status:   http.StatusUnprocessableEntity,
		code:     "generation_validation",
	}}

	for _, test := range tests {
		t.Run(test.about, func(t *testing.T) {
			c := qt.New(t)
			router := newTestRouter(c, test.provider, 10)
			rec := do(router, http.MethodPost, "/api/courses/generate", test.userID, "")
			c.Assert(rec.Code, qt.Equals, test.status, qt.Commentf("%s", rec.Body.String()))

			body := decodeBody(c, rec)
			c.Assert(body["success"], qt.Equals, false)
			if test.code != "" {
				c.Assert(body["code"], qt.Equals, test.code)
			}
		})
	}
}

func TestGenerateCourseRateLimited(t *testing.T) {
	c := qt.New(t)
	router := newTestRouter(c, &stubProvider{content: courseJSON}, 1)

	rec := do(router, http.MethodPost, "/api/courses/generate", "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	rec = do(router, http.MethodPost, "/api/courses/generate", "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusTooManyRequests)
	c.Assert(decodeBody(c, rec)["code"], qt.Equals, "rate_limited")
}

func TestChatEndpoint(t *testing.T) {
	c := qt.New(t)
	router := newTestRouter(c, &stubProvider{content: "Bonjour !"}, 10)

	rec := do(router, http.MethodPost, "/api/ai/chat", "2", `{"message": "  Say hello in French  "}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK, qt.Commentf("%s", rec.Body.String()))
	body := decodeBody(c, rec)
	c.Assert(body["reply"], qt.Equals, "Bonjour !")
	c.Assert(body["api"], qt.Equals, "stub")
	c.Assert(body["model"], qt.Equals, "stub-1")

	rec = do(router, http.MethodGet, "/api/ai/usage", "2", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	usage := decodeBody(c, rec)["usage"].(map[string]interface{})
	c.Assert(usage["requests"], qt.Equals, float64(1))

	for _, payload := range []string{`{"message": "   "}`, `not json`, ""} {
		rec = do(router, http.MethodPost, "/api/ai/chat", "2", payload)
		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest, qt.Commentf("payload %q", payload))
	}

	rec = do(router, http.MethodPost, "/api/ai/chat", "", `{"message": "hi"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)
}

func TestGetCourseBadID(t *testing.T) {
	c := qt.New(t)
	router := newTestRouter(c, &stubProvider{content: courseJSON}, 10)
	rec := do(router, http.MethodGet, "/api/courses/abc", "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
}

func TestHealthEndpoints(t *testing.T) {
	c := qt.New(t)
	provider := &stubProvider{content: courseJSON}
	router := newTestRouter(c, provider, 10)

	rec := do(router, http.MethodGet, "/health", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(decodeBody(c, rec)["status"], qt.Equals, "ok")

	rec = do(router, http.MethodGet, "/health/providers", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	provider.health = errors.New("invalid api key")
	rec = do(router, http.MethodGet, "/health/providers", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusServiceUnavailable)
	body := decodeBody(c, rec)
	c.Assert(body["status"], qt.Equals, "unavailable")
	stub := body["providers"].(map[string]interface{})["stub"].(map[string]interface{})
	c.Assert(stub["error"], qt.Equals, "invalid api key")
}

func TestMetricsEndpoint(t *testing.T) {
	c := qt.New(t)
	router := newTestRouter(c, &stubProvider{content: courseJSON}, 10)

	rec := do(router, http.MethodPost, "/api/courses/generate", "1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)

	rec = do(router, http.MethodGet, "/metrics", "", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, `lingua_ai_requests_total{outcome="provider"} 1`)
	c.Assert(rec.Body.String(), qt.Contains, `lingua_ai_courses_generated_total{result="success"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	c := qt.New(t)
	router := newTestRouter(c, &stubProvider{content: courseJSON}, 10)

	req := httptest.NewRequest(http.MethodOptions, "/api/courses/generate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusNoContent)
	c.Assert(rec.Header().Get("Access-Control-Allow-Origin"), qt.Equals, "http://localhost:3000")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	c.Assert(rec.Header().Get("Access-Control-Allow-Origin"), qt.Equals, "")
}

func jsonNumber(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}
