package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apikeydomain "github.com/smallbiznis/detailflow/internal/apikey/domain"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/authorization"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	intakedomain "github.com/smallbiznis/detailflow/internal/intake/domain"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
	"github.com/smallbiznis/detailflow/internal/providers/pdf"
	"github.com/smallbiznis/detailflow/internal/ratelimit"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	supplydomain "github.com/smallbiznis/detailflow/internal/supply/domain"
	vehicledomain "github.com/smallbiznis/detailflow/internal/vehicle/domain"
	"github.com/smallbiznis/detailflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrg = organizationdomain.Organization{
	ID:   uuid.MustParse("0b6f2c1e-8d7a-4c3b-9e5f-1a2b3c4d5e6f"),
	Name: "Shine Bros",
	Slug: "shine-bros",
}

const testJobID = "7b0c4f6e-3f55-4a70-9a4e-6f0d1d3c2b10"

type fakeOrganizationService struct{}

func (fakeOrganizationService) Create(ctx context.Context, req organizationdomain.CreateOrganizationRequest) (*organizationdomain.OrganizationResponse, error) {
	return nil, errors.New("not implemented")
}

func (fakeOrganizationService) GetBySlug(ctx context.Context, slug string) (*organizationdomain.Organization, error) {
	if slug != testOrg.Slug {
		return nil, organizationdomain.ErrNotFound
	}
	org := testOrg
	return &org, nil
}

func (fakeOrganizationService) GetByID(ctx context.Context, id string) (*organizationdomain.Organization, error) {
	if id != testOrg.ID.String() {
		return nil, organizationdomain.ErrNotFound
	}
	org := testOrg
	return &org, nil
}

type fakeGateway struct {
	issued []string
}

func (g *fakeGateway) IssueUploadCredential(ctx context.Context, tenantSlug, fileName, contentType string) (*storagedomain.UploadCredential, error) {
	g.issued = append(g.issued, tenantSlug+"/"+fileName)
	key := storagedomain.IntakePrefix(tenantSlug) + "01J0000000000000000000000-" + fileName
	return &storagedomain.UploadCredential{
		UploadURL: "https://uploads.example.com/" + key + "?sig=abc",
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		ObjectKey: key,
		ExpiresAt: time.Date(2025, 3, 4, 12, 10, 0, 0, time.UTC),
	}, nil
}

func (g *fakeGateway) FetchObject(ctx context.Context, key string) (*storagedomain.Object, error) {
	return nil, errors.New("not implemented")
}

type fakeAPIKeyService struct {
	principals map[string]apikeydomain.Principal
}

func (f *fakeAPIKeyService) List(ctx context.Context) ([]apikeydomain.Response, error) {
	return []apikeydomain.Response{}, nil
}

func (f *fakeAPIKeyService) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	if !apikeydomain.ValidRole(req.Role) {
		return nil, apikeydomain.ErrInvalidRole
	}
	return &apikeydomain.SecretResponse{KeyID: "42", Role: req.Role, APIKey: "df_live_secret"}, nil
}

func (f *fakeAPIKeyService) Revoke(ctx context.Context, keyID string) error {
	return nil
}

func (f *fakeAPIKeyService) Authenticate(ctx context.Context, rawKey string) (*apikeydomain.Principal, error) {
	p, ok := f.principals[rawKey]
	if !ok {
		return nil, apikeydomain.ErrUnauthorized
	}
	return &p, nil
}

// fakeAuthorizer grants actions by role, mirroring the seeded casbin policy.
type fakeAuthorizer struct {
	roles   map[string]string
	allowed map[string][]string
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, actor, orgID, object, action string) error {
	role := f.roles[actor]
	for _, a := range f.allowed[role] {
		if a == action {
			return nil
		}
	}
	return authorization.ErrForbidden
}

type fakeIntakeService struct {
	got *intakedomain.SubmitRequest
}

func (f *fakeIntakeService) Submit(ctx context.Context, req intakedomain.SubmitRequest) (*intakedomain.SubmitResult, error) {
	f.got = &req
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.OrgSlug != testOrg.Slug {
		return nil, intakedomain.ErrOrganizationNotFound
	}
	return &intakedomain.SubmitResult{Success: true, JobID: testJobID}, nil
}

type fakeAssessmentService struct {
	err  error
	last *assessmentdomain.AnalyzeRequest
}

func (f *fakeAssessmentService) Analyze(ctx context.Context, req assessmentdomain.AnalyzeRequest) (*assessmentdomain.Assessment, error) {
	f.last = &req
	if f.err != nil {
		return nil, f.err
	}
	return &assessmentdomain.Assessment{Confidence: 81, Flags: []string{}}, nil
}

type fakeJobService struct {
	detail   *jobdomain.Detail
	advanced *jobdomain.AdvanceStageRequest
}

func (f *fakeJobService) GetByID(ctx context.Context, id string) (*jobdomain.Detail, error) {
	if id != testJobID {
		return nil, jobdomain.ErrNotFound
	}
	return f.detail, nil
}

func (f *fakeJobService) AdvanceStage(ctx context.Context, req jobdomain.AdvanceStageRequest) (*jobdomain.Detail, error) {
	f.advanced = &req
	if req.Stage != string(jobdomain.StageSent) {
		return nil, jobdomain.ErrInvalidStageTransition
	}
	return f.detail, nil
}

func (f *fakeJobService) Load(ctx context.Context, id uuid.UUID) (*jobdomain.Job, *vehicledomain.Vehicle, error) {
	return nil, nil, jobdomain.ErrNotFound
}

func (f *fakeJobService) SaveAssessment(ctx context.Context, id uuid.UUID, payload []byte, version int) error {
	return nil
}

type fakeSupplyService struct{}

func (fakeSupplyService) CreateProduct(ctx context.Context, req supplydomain.CreateProductRequest) (*supplydomain.ProductResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return &supplydomain.ProductResponse{Name: req.Name}, nil
}

func (fakeSupplyService) ListProducts(ctx context.Context, req supplydomain.ListProductsRequest) (*supplydomain.ListProductsResponse, error) {
	return &supplydomain.ListProductsResponse{}, nil
}

func (fakeSupplyService) LogUsage(ctx context.Context, req supplydomain.LogUsageRequest) (*supplydomain.UsageResponse, error) {
	return nil, supplydomain.ErrProductNotFound
}

func (fakeSupplyService) JobCosts(ctx context.Context, jobID string) (*supplydomain.CostSummary, error) {
	return &supplydomain.CostSummary{JobID: jobID, TotalCost: "0.00"}, nil
}

type fakePDF struct{}

func (fakePDF) GenerateEstimate(ctx context.Context, estimate pdf.EstimateData) (io.Reader, error) {
	return strings.NewReader("%PDF-1.3 " + estimate.OrgName), nil
}

type fakePresignLimiter struct {
	res   *ratelimit.Result
	err   error
	calls []string
}

func (f *fakePresignLimiter) Allow(ctx context.Context, orgSlug, clientIP string) (*ratelimit.Result, error) {
	f.calls = append(f.calls, orgSlug)
	return f.res, f.err
}

type testServer struct {
	srv        *Server
	gateway    *fakeGateway
	intake     *fakeIntakeService
	assessment *fakeAssessmentService
	jobs       *fakeJobService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		gateway:    &fakeGateway{},
		intake:     &fakeIntakeService{},
		assessment: &fakeAssessmentService{},
		jobs:       &fakeJobService{detail: &jobdomain.Detail{ID: testJobID, Stage: jobdomain.StageCreated}},
	}

	principals := map[string]apikeydomain.Principal{
		"owner-key":  {OrgID: testOrg.ID, KeyID: "1", Role: apikeydomain.RoleOwner},
		"staff-key":  {OrgID: testOrg.ID, KeyID: "2", Role: apikeydomain.RoleStaff},
		"viewer-key": {OrgID: testOrg.ID, KeyID: "3", Role: apikeydomain.RoleViewer},
	}
	authz := &fakeAuthorizer{
		roles: map[string]string{"api_key:1": "owner", "api_key:2": "staff", "api_key:3": "viewer"},
		allowed: map[string][]string{
			"owner": {
				authorization.ActionJobView, authorization.ActionJobUpdate, authorization.ActionJobAssess,
				authorization.ActionSupplyView, authorization.ActionSupplyLog, authorization.ActionSupplyManage,
				authorization.ActionAPIKeyView, authorization.ActionAPIKeyCreate, authorization.ActionAPIKeyRevoke,
			},
			"staff": {
				authorization.ActionJobView, authorization.ActionJobUpdate, authorization.ActionJobAssess,
				authorization.ActionSupplyView, authorization.ActionSupplyLog,
			},
			"viewer": {authorization.ActionJobView, authorization.ActionSupplyView},
		},
	}

	ts.srv = NewServer(ServerParams{
		Gin:             engine,
		Cfg:             config.Config{Storage: config.StorageConfig{Provider: config.StorageProviderR2}},
		Clock:           clock.NewFakeClock(time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)),
		APIKeySvc:       &fakeAPIKeyService{principals: principals},
		AuthzSvc:        authz,
		OrganizationSvc: fakeOrganizationService{},
		Gateway:         ts.gateway,
		IntakeSvc:       ts.intake,
		AssessmentSvc:   ts.assessment,
		JobSvc:          ts.jobs,
		SupplySvc:       fakeSupplyService{},
		PDFProvider:     fakePDF{},
	})
	return ts
}

func (ts *testServer) do(method, path, apiKey string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestPresignUploadIssuesCredential(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/uploads/presign", "", gin.H{
		"orgSlug":     "Shine-Bros",
		"fileName":    "front.jpg",
		"contentType": "image/jpeg",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["presignedUrl"], "https://uploads.example.com/intake/shine-bros/")
	assert.Contains(t, resp["key"], "intake/shine-bros/")
	assert.Equal(t, []string{"shine-bros/front.jpg"}, ts.gateway.issued)
}

func TestPresignUploadRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/uploads/presign", "", gin.H{
		"orgSlug":     "shine-bros",
		"fileName":    "notes.pdf",
		"contentType": "application/pdf",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "contentType", payload.Errors[0].Field)

	rec = ts.do(http.MethodPost, "/api/uploads/presign", "", gin.H{"orgSlug": "shine-bros"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload = decodeError(t, rec)
	assert.Len(t, payload.Errors, 2)

	rec = ts.do(http.MethodPost, "/api/uploads/presign", "", gin.H{
		"orgSlug":     "nobody",
		"fileName":    "front.jpg",
		"contentType": "image/png",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, ts.gateway.issued)
}

func TestPresignRateLimitDenies(t *testing.T) {
	ts := newTestServer(t)
	limiter := &fakePresignLimiter{res: &ratelimit.Result{Allowed: false, RetryAfter: 1500 * time.Millisecond, Scope: ratelimit.ScopeOrg}}
	ts.srv.presignLimiter = limiter

	rec := ts.do(http.MethodPost, "/api/uploads/presign", "", gin.H{
		"orgSlug":     "Shine-Bros",
		"fileName":    "front.jpg",
		"contentType": "image/jpeg",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, rateLimitReasonOrgRate, rec.Header().Get("X-Rate-Limited-Reason"))
	assert.Equal(t, []string{"shine-bros"}, limiter.calls)
	assert.Empty(t, ts.gateway.issued)
}

func TestPresignRateLimitPassesBodyThrough(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.presignLimiter = &fakePresignLimiter{res: &ratelimit.Result{Allowed: true}}

	rec := ts.do(http.MethodPost, "/api/uploads/presign", "", gin.H{
		"orgSlug":     "shine-bros",
		"fileName":    "rear.png",
		"contentType": "image/png",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"shine-bros/rear.png"}, ts.gateway.issued)
}

func TestPresignRateLimitFailsOpen(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.presignLimiter = &fakePresignLimiter{err: errors.New("redis down")}

	rec := ts.do(http.MethodPost, "/api/uploads/presign", "", gin.H{
		"orgSlug":     "shine-bros",
		"fileName":    "rear.png",
		"contentType": "image/png",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitIntake(t *testing.T) {
	ts := newTestServer(t)

	body := gin.H{
		"orgSlug":      "shine-bros",
		"firstName":    "Jane",
		"lastName":     "Doe",
		"email":        "jane@example.com",
		"phone":        "555-0100",
		"vehicleYear":  2019,
		"vehicleMake":  "Honda",
		"vehicleModel": "Civic",
		"vehicleColor": "Blue",
		"photoKeys":    []string{"intake/shine-bros/a.jpg"},
	}
	rec := ts.do(http.MethodPost, "/api/intake/submit", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"jobId":"`+testJobID+`"}`, rec.Body.String())

	body["email"] = "not-an-email"
	rec = ts.do(http.MethodPost, "/api/intake/submit", "", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "email", payload.Errors[0].Field)
	assert.Equal(t, validation.CodeInvalidEmail, payload.Errors[0].Code)

	body["email"] = "jane@example.com"
	body["orgSlug"] = "nobody"
	rec = ts.do(http.MethodPost, "/api/intake/submit", "", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/intake/submit", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestAnalyzeRequiresAPIKeyAndRole(t *testing.T) {
	ts := newTestServer(t)
	body := gin.H{"jobId": testJobID, "photoKeys": []string{"intake/shine-bros/a.jpg"}}

	rec := ts.do(http.MethodPost, "/api/estimates/analyze", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/estimates/analyze", "unknown-key", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/estimates/analyze", "viewer-key", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/estimates/analyze", "staff-key", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 81, resp["confidence"])
	assert.NotContains(t, resp, "data")
}

func TestAnalyzeAcceptsNumericAndStringYear(t *testing.T) {
	for name, year := range map[string]any{"number": 2024, "string": "2024"} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(http.MethodPost, "/api/estimates/analyze", "staff-key", gin.H{
				"jobId":        testJobID,
				"photoKeys":    []string{"intake/shine-bros/a.jpg"},
				"vehicleYear":  year,
				"vehicleMake":  "Tesla",
				"vehicleModel": "Model 3",
				"vehicleColor": "White",
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.NotNil(t, ts.assessment.last)
			assert.Equal(t, assessmentdomain.VehicleYear(2024), ts.assessment.last.VehicleYear)
			assert.Equal(t, "2024", ts.assessment.last.VehicleYear.String())
		})
	}

	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/estimates/analyze", "staff-key", gin.H{
		"jobId":       testJobID,
		"photoKeys":   []string{"intake/shine-bros/a.jpg"},
		"vehicleYear": "next year",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeErrorMapping(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{assessmentdomain.ErrJobNotFound, http.StatusNotFound, "job not found"},
		{assessmentdomain.ErrAssessmentInProgress, http.StatusConflict, "an assessment for this job is already running"},
		{assessmentdomain.ErrNoPhotosRetrieved, http.StatusInternalServerError, "failed to fetch any photos from storage"},
		{assessmentdomain.ErrModelFailed, http.StatusInternalServerError, "assessment failed, please try again"},
		{assessmentdomain.ErrInvalidModelOutput, http.StatusInternalServerError, "assessment failed, please try again"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			ts := newTestServer(t)
			ts.assessment.err = tc.err

			rec := ts.do(http.MethodPost, "/api/estimates/analyze", "owner-key", gin.H{"jobId": testJobID, "photoKeys": []string{"k"}})
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decodeError(t, rec).Message)
		})
	}
}

func TestAdvanceStageRecordsActor(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/jobs/"+testJobID+"/stage", "staff-key", gin.H{"stage": "sent"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, ts.jobs.advanced)
	assert.Equal(t, "api_key:2", ts.jobs.advanced.Actor)
	assert.Equal(t, testJobID, ts.jobs.advanced.JobID)

	rec = ts.do(http.MethodPost, "/api/jobs/"+testJobID+"/stage", "staff-key", gin.H{"stage": "complete"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "stage", payload.Errors[0].Field)
	assert.Equal(t, "invalid_stage_transition", payload.Errors[0].Code)

	rec = ts.do(http.MethodPost, "/api/jobs/"+testJobID+"/stage", "viewer-key", gin.H{"stage": "sent"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetJobWrapsData(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/jobs/"+testJobID, "viewer-key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data jobdomain.Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testJobID, resp.Data.ID)

	rec = ts.do(http.MethodGet, "/api/jobs/"+uuid.NewString(), "viewer-key", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEstimatePDF(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/jobs/"+testJobID+"/estimate.pdf", "viewer-key", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job has no assessment", decodeError(t, rec).Message)

	dim := assessmentdomain.DimensionScore{Score: 7, Description: "Good", RecommendedService: "Wash"}
	ts.jobs.detail.Assessment = &assessmentdomain.Assessment{
		Scores: assessmentdomain.Scores{
			PaintCondition:  dim,
			ScratchSeverity: dim,
			Contamination:   dim,
			Interior:        dim,
			WheelsTrim:      dim,
		},
		RecommendedServices: []assessmentdomain.RecommendedService{{Name: "Wash", BasePrice: 60, AdjustedPrice: 60}},
		Confidence:          90,
	}

	rec = ts.do(http.MethodGet, "/api/jobs/"+testJobID+"/estimate.pdf", "viewer-key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "estimate-"+testJobID+".pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.Contains(t, rec.Body.String(), "Shine Bros")
}

func TestSupplyRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/supplies/products", "staff-key", gin.H{"name": "Polish"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/supplies/products", "owner-key", gin.H{"name": "Polish"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/jobs/"+testJobID+"/usage", "staff-key", gin.H{"productId": uuid.NewString(), "quantityUsed": "2"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", decodeError(t, rec).Message)

	rec = ts.do(http.MethodGet, "/api/jobs/"+testJobID+"/costs", "viewer-key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"job_id":"`+testJobID+`","usage":null,"total_cost":"0.00"}}`, rec.Body.String())
}

func TestPublicOrganization(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/public/organizations/shine-bros", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"name":"Shine Bros","slug":"shine-bros"}}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/public/organizations/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "organization not found", decodeError(t, rec).Message)
}

func TestAPIKeyRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/api-keys", "staff-key", gin.H{"name": "tablet", "role": "staff"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/api-keys", "owner-key", gin.H{"name": "tablet", "role": "Staff"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "df_live_secret")

	rec = ts.do(http.MethodPost, "/api/api-keys", "owner-key", gin.H{"name": "tablet", "role": "admin"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role", decodeError(t, rec).Errors[0].Field)

	rec = ts.do(http.MethodPost, "/api/api-keys/42/revoke", "owner-key", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(storagedomain.ErrUnsupportedContentType)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "unsupported_content_type", code)

	errType, code = classifyErrorForLog(assessmentdomain.ErrModelFailed)
	assert.Equal(t, "internal_error", errType)
	assert.Equal(t, "model_failed", code)

	errType, code = classifyErrorForLog(nil)
	assert.Empty(t, errType)
	assert.Empty(t, code)
}
