package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"
)

type testServer struct {
	router  *gin.Engine
	careers *memCareerRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var questions []domain.Question
	for i, d := range domain.Dimensions {
		questions = append(questions, domain.Question{
			ID:                 string(d) + "-1",
			TenantID:           testTenant,
			Language:           domain.LanguageEnglish,
			Ordinal:            i + 1,
			Dimension:          d,
			Text:               "question " + string(d),
			OptionA:            "first",
			OptionB:            "second",
			OptionAMapsToFirst: true,
			Active:             true,
		})
	}
	tech := domain.CareerCluster{ID: "cl-tech", TenantID: testTenant, Name: "Technology"}
	eng := domain.Career{ID: "c-eng", TenantID: testTenant, ClusterID: tech.ID, Cluster: tech, Name: "Software Engineer", Active: true}
	art := domain.Career{ID: "c-art", TenantID: testTenant, ClusterID: tech.ID, Cluster: tech, Name: "Game Artist", Active: true}
	careers := &memCareerRepo{
		clusters: []domain.CareerCluster{tech},
		careers:  []domain.Career{eng, art},
		matches: []domain.PersonalityCareerMatch{
			{TenantID: testTenant, TypeCode: "ENTP", Career: eng, BaseScore: 0.8},
			{TenantID: testTenant, TypeCode: "ENTP", Career: art, BaseScore: 0.4},
		},
	}

	logger := zap.NewNop()
	ref := service.NewReferenceData(logger, service.NewMemoryReferenceCache(), &memQuestionRepo{questions: questions}, careers, service.ReferenceTTLs{})
	assessments, err := service.NewAssessmentService(
		logger,
		&memSessionRepo{sessions: make(map[string]domain.Session)},
		&memAnswerRepo{answers: make(map[string]map[string]domain.Answer)},
		careers,
		ref,
		service.DefaultResolverConfig(),
	)
	if err != nil {
		t.Fatalf("assessment service: %v", err)
	}
	careerSvc, err := service.NewCareerService(logger, careers, memTypeRepo{}, ref, service.DefaultMatchSettings())
	if err != nil {
		t.Fatalf("career service: %v", err)
	}

	router := NewRouter(logger, NewAssessmentHandler(logger, assessments, careerSvc), NewCareerHandler(logger, careerSvc))
	return &testServer{router: router, careers: careers}
}

func (s *testServer) do(t *testing.T, tenantID, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		req.Header.Set(TenantHeader, tenantID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func (s *testServer) startSession(t *testing.T) string {
	t.Helper()
	rec, body := s.do(t, testTenant, http.MethodPost, "/sessions", map[string]string{"language": "en", "policy": "standard"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("expected session id in %v", body)
	}
	return id
}

// answerENTP answers E, N, T and P on the one-question-per-dimension bank.
func (s *testServer) answerENTP(t *testing.T, id string) {
	t.Helper()
	for q, opt := range map[string]string{"EI-1": "A", "SN-1": "B", "TF-1": "A", "JP-1": "B"} {
		rec, _ := s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/answers", map[string]string{
			"question_id": q, "selected_option": opt, "strength": "strong",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %s: expected 200, got %d: %s", q, rec.Code, rec.Body.String())
		}
	}
}

func TestAssessmentFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)

	rec, body := s.do(t, testTenant, http.MethodGet, "/sessions/"+id+"/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	questions, _ := body["questions"].([]any)
	if len(questions) != 4 {
		t.Fatalf("expected 4 questions, got %v", body["questions"])
	}
	if strings.Contains(rec.Body.String(), "option_a_maps_to_first") {
		t.Fatalf("question payload leaks pole mapping: %s", rec.Body.String())
	}

	s.answerENTP(t, id)

	rec, body = s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/finish", nil)
	if rec.Code != http.StatusOK || body["stage"] != string(domain.StageRateCareerClusters) {
		t.Fatalf("finish: got %d %v", rec.Code, body)
	}

	rec, body = s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/cluster-ratings", map[string]any{"ratings": map[string]int{"cl-tech": 4}})
	if rec.Code != http.StatusOK {
		t.Fatalf("cluster ratings: got %d %s", rec.Code, rec.Body.String())
	}
	if body["type_code"] != "ENTP" || body["stage"] != string(domain.StageRateAssessment) {
		t.Fatalf("unexpected session after calculation %v", body)
	}

	rec, body = s.do(t, testTenant, http.MethodGet, "/sessions/"+id+"/result", nil)
	if rec.Code != http.StatusOK || body["type_code"] != "ENTP" {
		t.Fatalf("result: got %d %v", rec.Code, body)
	}
	scores, _ := body["scores"].(map[string]any)
	confidence, _ := body["confidence"].(map[string]any)
	if len(scores) != 4 || confidence["EI"] != float64(100) {
		t.Fatalf("expected per-dimension maps, got %v", body)
	}

	rec, body = s.do(t, testTenant, http.MethodGet, "/sessions/"+id+"/quality", nil)
	if rec.Code != http.StatusOK || body["validation"] == nil || body["stability"] == nil {
		t.Fatalf("quality: got %d %v", rec.Code, body)
	}

	rec, body = s.do(t, testTenant, http.MethodGet, "/sessions/"+id+"/careers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("careers: got %d %s", rec.Code, rec.Body.String())
	}
	careers, _ := body["careers"].([]any)
	if len(careers) != 1 {
		t.Fatalf("expected one career above threshold, got %v", body["careers"])
	}
	if first, _ := careers[0].(map[string]any); first["career_id"] != "c-eng" {
		t.Fatalf("unexpected career %v", careers[0])
	}

	rec, body = s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/complete", nil)
	if rec.Code != http.StatusOK || body["type_code"] != "ENTP" {
		t.Fatalf("repeat complete: got %d %v", rec.Code, body)
	}

	rec, body = s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/rating", map[string]int{"rating": 5})
	if rec.Code != http.StatusOK || body["stage"] != string(domain.StageReport) {
		t.Fatalf("rating: got %d %v", rec.Code, body)
	}

	rec, body = s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/answers", map[string]string{"question_id": "EI-1", "selected_option": "B"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 after report, got %d %v", rec.Code, body)
	}
}

func TestSessionErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)

	tests := []struct {
		name   string
		tenant string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown session", testTenant, http.MethodGet, "/sessions/missing", nil, http.StatusNotFound, "not_found"},
		{"other tenant", otherTenant, http.MethodGet, "/sessions/" + id, nil, http.StatusForbidden, "access_denied"},
		{"bad option", testTenant, http.MethodPost, "/sessions/" + id + "/answers", map[string]string{"question_id": "EI-1", "selected_option": "C"}, http.StatusBadRequest, "invalid_input"},
		{"unknown question", testTenant, http.MethodPost, "/sessions/" + id + "/answers", map[string]string{"question_id": "XX-9", "selected_option": "A"}, http.StatusBadRequest, "invalid_question_reference"},
		{"finish early", testTenant, http.MethodPost, "/sessions/" + id + "/finish", nil, http.StatusConflict, "incomplete_assessment"},
		{"result early", testTenant, http.MethodGet, "/sessions/" + id + "/result", nil, http.StatusConflict, "incomplete_assessment"},
		{"careers early", testTenant, http.MethodGet, "/sessions/" + id + "/careers", nil, http.StatusConflict, "incomplete_assessment"},
		{"rate too soon", testTenant, http.MethodPost, "/sessions/" + id + "/rating", map[string]int{"rating": 3}, http.StatusConflict, "invalid_transition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, tt.tenant, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if body["error"] != tt.code {
				t.Fatalf("expected error %q, got %v", tt.code, body["error"])
			}
		})
	}
}

func TestStartSessionDefaultsWithoutBody(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, testTenant, http.MethodPost, "/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["language"] != "en" || body["policy"] != string(domain.PolicyStandard) {
		t.Fatalf("unexpected defaults %v", body)
	}
	if _, ok := body["tenant_id"]; ok {
		t.Fatalf("session payload should not expose tenant: %v", body)
	}
}

func TestRateClustersRejectsUnknownCluster(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)
	s.answerENTP(t, id)
	if rec, _ := s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/finish", nil); rec.Code != http.StatusOK {
		t.Fatalf("finish: got %d", rec.Code)
	}

	rec, body := s.do(t, testTenant, http.MethodPost, "/sessions/"+id+"/cluster-ratings", map[string]any{"ratings": map[string]int{"cl-ghost": 3}})
	if rec.Code != http.StatusBadRequest || body["error"] != "invalid_input" {
		t.Fatalf("expected invalid_input, got %d %v", rec.Code, body)
	}
	if body["stage"] != string(domain.StageRateCareerClusters) {
		t.Fatalf("expected stage context, got %v", body)
	}
}

func TestCareerEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, testTenant, http.MethodGet, "/matches/entp?threshold=0.3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("matches: got %d %s", rec.Code, rec.Body.String())
	}
	if careers, _ := body["careers"].([]any); len(careers) != 2 {
		t.Fatalf("expected both careers at threshold 0.3, got %v", body["careers"])
	}

	if rec, _ := s.do(t, testTenant, http.MethodGet, "/matches/XXXX", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad type code, got %d", rec.Code)
	}
	if rec, _ := s.do(t, testTenant, http.MethodGet, "/matches/ENTP?threshold=abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad threshold, got %d", rec.Code)
	}

	rec, _ = s.do(t, testTenant, http.MethodPut, "/matches/ENTP/c-art", map[string]float64{"score": 0.95})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update score: got %d %s", rec.Code, rec.Body.String())
	}
	rec, body = s.do(t, testTenant, http.MethodGet, "/matches/ENTP", nil)
	careers, _ := body["careers"].([]any)
	if rec.Code != http.StatusOK || len(careers) != 2 {
		t.Fatalf("expected refreshed ranking, got %d %v", rec.Code, body)
	}
	if first, _ := careers[0].(map[string]any); first["career_id"] != "c-art" {
		t.Fatalf("expected updated career first, got %v", careers[0])
	}

	if rec, _ := s.do(t, testTenant, http.MethodPut, "/matches/ENTP/c-art", map[string]float64{"score": 1.5}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for score out of range, got %d", rec.Code)
	}
	if rec, _ := s.do(t, testTenant, http.MethodPut, "/matches/ENTP/c-art", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing score, got %d", rec.Code)
	}

	rec, body = s.do(t, testTenant, http.MethodPut, "/matches/ENTP", map[string]any{
		"scores": map[string]float64{"c-eng": 0.99, "c-art": 2, "c-none": 0.5},
	})
	if rec.Code != http.StatusOK || body["updated"] != float64(1) || body["failed"] != float64(2) {
		t.Fatalf("bulk update: got %d %v", rec.Code, body)
	}
	rec, body = s.do(t, testTenant, http.MethodGet, "/matches/ENTP", nil)
	careers, _ = body["careers"].([]any)
	if first, _ := careers[0].(map[string]any); rec.Code != http.StatusOK || first["career_id"] != "c-eng" {
		t.Fatalf("expected bulk-updated career first, got %d %v", rec.Code, body)
	}
	if rec, _ := s.do(t, testTenant, http.MethodPut, "/matches/ENTP", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing scores, got %d", rec.Code)
	}

	rec, body = s.do(t, testTenant, http.MethodGet, "/careers?q=soft", nil)
	if found, _ := body["careers"].([]any); rec.Code != http.StatusOK || len(found) != 1 {
		t.Fatalf("search: got %d %v", rec.Code, body)
	}
	if rec, _ := s.do(t, testTenant, http.MethodGet, "/careers?q=s", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short term, got %d", rec.Code)
	}

	if rec, _ := s.do(t, testTenant, http.MethodGet, "/careers/c-eng", nil); rec.Code != http.StatusOK {
		t.Fatalf("career details: got %d", rec.Code)
	}
	if rec, _ := s.do(t, testTenant, http.MethodGet, "/careers/c-none", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec, body = s.do(t, testTenant, http.MethodGet, "/clusters", nil)
	if clusters, _ := body["clusters"].([]any); rec.Code != http.StatusOK || len(clusters) != 1 {
		t.Fatalf("clusters: got %d %v", rec.Code, body)
	}
	rec, body = s.do(t, testTenant, http.MethodGet, "/clusters/cl-tech/careers", nil)
	if list, _ := body["careers"].([]any); rec.Code != http.StatusOK || len(list) != 2 {
		t.Fatalf("cluster careers: got %d %v", rec.Code, body)
	}

	rec, body = s.do(t, testTenant, http.MethodGet, "/types/entp?lang=en", nil)
	if rec.Code != http.StatusOK || body["name"] != "Debater" {
		t.Fatalf("type: got %d %v", rec.Code, body)
	}
	if rec, _ := s.do(t, testTenant, http.MethodGet, "/types/ISTJ", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing type, got %d", rec.Code)
	}
}
