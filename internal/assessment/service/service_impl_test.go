package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/config"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	vehicledomain "github.com/smallbiznis/detailflow/internal/vehicle/domain"
	visiondomain "github.com/smallbiznis/detailflow/internal/vision/domain"
	"github.com/smallbiznis/detailflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validOutput = `{"scores":{` +
	`"paintCondition":{"score":6,"description":"light swirls","recommendedService":"one-step polish"},` +
	`"scratchSeverity":{"score":8,"description":"minor marring","recommendedService":"spot correction"},` +
	`"contamination":{"score":5,"description":"bonded fallout","recommendedService":"clay and iron decon"},` +
	`"interior":{"score":7,"description":"dusty vents","recommendedService":"interior detail"},` +
	`"wheelsTrim":{"score":4,"description":"baked brake dust","recommendedService":"wheel decon"}},` +
	`"recommendedServices":[{"name":"Paint correction","basePrice":400,"adjustedPrice":450}],` +
	`"confidence":%d,"flags":%s}`

func output(confidence int, flags string) string {
	return fmt.Sprintf(validOutput, confidence, flags)
}

type saved struct {
	payload []byte
	version int
}

type fakeJobs struct {
	jobdomain.Service
	job     *jobdomain.Job
	vehicle *vehicledomain.Vehicle
	saves   []saved
	saveErr error
}

func (f *fakeJobs) Load(ctx context.Context, id uuid.UUID) (*jobdomain.Job, *vehicledomain.Vehicle, error) {
	if f.job == nil || f.job.ID != id {
		return nil, nil, jobdomain.ErrNotFound
	}
	return f.job, f.vehicle, nil
}

func (f *fakeJobs) SaveAssessment(ctx context.Context, id uuid.UUID, payload []byte, version int) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, saved{payload: payload, version: version})
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]*storagedomain.Object
	fetched []string
	ctxErrs []error
}

func (f *fakeStorage) IssueUploadCredential(ctx context.Context, tenantSlug, fileName, contentType string) (*storagedomain.UploadCredential, error) {
	return nil, errors.New("not used")
}

func (f *fakeStorage) FetchObject(ctx context.Context, key string) (*storagedomain.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, key)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	obj, ok := f.objects[key]
	if !ok {
		return nil, &storagedomain.FetchError{Key: key, Reason: storagedomain.ReasonNotFound}
	}
	return obj, nil
}

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Name() string { return "mock" }

func (m *mockModel) Complete(ctx context.Context, req visiondomain.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type fakeLocker struct {
	held     map[string]bool
	unlocked []string
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if f.held[key] {
		return "", false, nil
	}
	f.held[key] = true
	return "token", true, nil
}

func (f *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	delete(f.held, key)
	f.unlocked = append(f.unlocked, key)
	return nil
}

type fixture struct {
	svc     domain.Service
	jobs    *fakeJobs
	storage *fakeStorage
	model   *mockModel
	locker  *fakeLocker
	jobID   uuid.UUID
	ctx     context.Context
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 40, G: 90, B: 160, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orgID := uuid.New()
	jobID := uuid.New()

	jobs := &fakeJobs{
		job:     &jobdomain.Job{ID: jobID, OrgID: orgID},
		vehicle: &vehicledomain.Vehicle{Year: 2019, Make: "Honda", Model: "Civic", Color: "Blue"},
	}
	small := jpegBytes(t, 64, 48)
	storage := &fakeStorage{objects: map[string]*storagedomain.Object{
		"intake/shine/front.jpg": {Key: "intake/shine/front.jpg", ContentType: "image/jpeg", Data: small},
		"intake/shine/rear.jpg":  {Key: "intake/shine/rear.jpg", ContentType: "image/jpeg", Data: small},
		"intake/shine/iphone":    {Key: "intake/shine/iphone", ContentType: "image/heic", Data: []byte("heic")},
	}}
	model := &mockModel{}
	locker := &fakeLocker{held: map[string]bool{}}

	svc := New(Params{
		Log:     zap.NewNop(),
		Config:  config.NewStaticAssessmentConfigHolder(config.DefaultAssessmentConfig()),
		Jobs:    jobs,
		Storage: storage,
		Model:   model,
		Locker:  locker,
	})
	return &fixture{
		svc:     svc,
		jobs:    jobs,
		storage: storage,
		model:   model,
		locker:  locker,
		jobID:   jobID,
		ctx:     orgcontext.WithOrgID(context.Background(), orgID),
	}
}

func TestAnalyzePersistsReturnedDocument(t *testing.T) {
	f := newFixture(t)
	var captured visiondomain.Request
	f.model.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(visiondomain.Request) }).
		Return("```json\n"+output(82, `["Check rear bumper"]`)+"\n```", nil).Once()

	result, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{
		JobID:        f.jobID.String(),
		PhotoKeys:    []string{"intake/shine/front.jpg", "intake/shine/missing.jpg", "intake/shine/iphone"},
		VehicleYear:  2021,
		VehicleMake:  "BMW",
		VehicleModel: "M3",
		VehicleColor: "Black",
	})
	require.NoError(t, err)
	assert.Equal(t, 82, result.Confidence)
	assert.Equal(t, []string{"Check rear bumper"}, result.Flags)

	assert.Equal(t, "Vehicle: 2021 BMW M3 in Black", captured.Prompt)
	assert.Equal(t, "claude-opus-4-5", captured.Model)
	assert.EqualValues(t, 2000, captured.MaxTokens)
	require.Len(t, captured.Images, 1)
	assert.Equal(t, "image/jpeg", captured.Images[0].MediaType)

	require.Len(t, f.jobs.saves, 1)
	assert.Equal(t, domain.CurrentVersion, f.jobs.saves[0].version)
	encoded, err := domain.Encode(result)
	require.NoError(t, err)
	assert.JSONEq(t, string(encoded), string(f.jobs.saves[0].payload))

	assert.Equal(t, []string{"assessment:lock:" + f.jobID.String()}, f.locker.unlocked)
	f.model.AssertExpectations(t)
}

func TestAnalyzeUsesStoredVehicleWhenDescriptorBlank(t *testing.T) {
	f := newFixture(t)
	var captured visiondomain.Request
	f.model.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(visiondomain.Request) }).
		Return(output(75, `[]`), nil).Once()

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{
		JobID:     f.jobID.String(),
		PhotoKeys: []string{"intake/shine/front.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Vehicle: 2019 Honda Civic in Blue", captured.Prompt)
}

func TestAnalyzeTruncatesBeforeFetching(t *testing.T) {
	f := newFixture(t)
	f.model.On("Complete", mock.Anything, mock.Anything).Return(output(90, `[]`), nil).Once()

	keys := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		keys = append(keys, "intake/shine/front.jpg")
	}
	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: keys})
	require.NoError(t, err)
	assert.Len(t, f.storage.fetched, 8)
}

func TestAnalyzeNoPhotosSkipsModelAndWrite(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{
		JobID:     f.jobID.String(),
		PhotoKeys: []string{"intake/shine/missing.jpg", "intake/shine/iphone"},
	})
	assert.ErrorIs(t, err, domain.ErrNoPhotosRetrieved)
	f.model.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	assert.Empty(t, f.jobs.saves)
}

func TestAnalyzeModelFailure(t *testing.T) {
	f := newFixture(t)
	f.model.On("Complete", mock.Anything, mock.Anything).Return("", visiondomain.ErrNoTextContent).Once()

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/front.jpg"}})
	assert.ErrorIs(t, err, domain.ErrModelFailed)
	assert.Empty(t, f.jobs.saves)
}

func TestAnalyzeInvalidOutputLeavesJobUntouched(t *testing.T) {
	f := newFixture(t)
	f.model.On("Complete", mock.Anything, mock.Anything).Return(`I could not assess these photos.`, nil).Once()

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/front.jpg"}})
	assert.ErrorIs(t, err, domain.ErrInvalidModelOutput)
	assert.Empty(t, f.jobs.saves)
}

func TestAnalyzeOutOfRangeScoreRejected(t *testing.T) {
	f := newFixture(t)
	bad := strings.Replace(output(80, `[]`), `"score":6`, `"score":11`, 1)
	f.model.On("Complete", mock.Anything, mock.Anything).Return(bad, nil).Once()

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/front.jpg"}})
	assert.ErrorIs(t, err, domain.ErrInvalidModelOutput)
	assert.Empty(t, f.jobs.saves)
}

func TestAnalyzeMissingConfidenceRejected(t *testing.T) {
	f := newFixture(t)
	bad := strings.Replace(output(80, `[]`), `"confidence":80,`, "", 1)
	f.model.On("Complete", mock.Anything, mock.Anything).Return(bad, nil).Once()

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/front.jpg"}})
	assert.ErrorIs(t, err, domain.ErrInvalidModelOutput)
	assert.Empty(t, f.jobs.saves)
}

func TestAnalyzeLowConfidenceAddsFlag(t *testing.T) {
	f := newFixture(t)
	f.model.On("Complete", mock.Anything, mock.Anything).Return(output(40, `[]`), nil).Once()

	result, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/front.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, []string{lowConfidenceFlag}, result.Flags)
	assert.Contains(t, string(f.jobs.saves[0].payload), "Confidence is low")
}

func TestAnalyzeRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	f.locker.held["assessment:lock:"+f.jobID.String()] = true

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/front.jpg"}})
	assert.ErrorIs(t, err, domain.ErrAssessmentInProgress)
	assert.Empty(t, f.storage.fetched)
}

func TestAnalyzeValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: "nope", PhotoKeys: nil})
	fieldErrs, ok := validation.As(err)
	require.True(t, ok)
	assert.True(t, fieldErrs.Has("jobId"))
	assert.True(t, fieldErrs.Has("photoKeys"))

	_, err = f.svc.Analyze(context.Background(), domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"k"}})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, err = f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: uuid.NewString(), PhotoKeys: []string{"k"}})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestAnalyzeSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.model.On("Complete", mock.Anything, mock.Anything).Return(output(70, `[]`), nil).Once()

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	_, err := f.svc.Analyze(ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/front.jpg"}})
	require.NoError(t, err)
	for _, ctxErr := range f.storage.ctxErrs {
		assert.NoError(t, ctxErr)
	}
	assert.Len(t, f.jobs.saves, 1)
}

func TestAnalyzeDownscalesLargePhotos(t *testing.T) {
	f := newFixture(t)
	f.storage.objects["intake/shine/huge.jpg"] = &storagedomain.Object{
		Key:         "intake/shine/huge.jpg",
		ContentType: "image/jpeg",
		Data:        jpegBytes(t, 3000, 2000),
	}
	var captured visiondomain.Request
	f.model.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(visiondomain.Request) }).
		Return(output(88, `[]`), nil).Once()

	_, err := f.svc.Analyze(f.ctx, domain.AnalyzeRequest{JobID: f.jobID.String(), PhotoKeys: []string{"intake/shine/huge.jpg"}})
	require.NoError(t, err)
	require.Len(t, captured.Images, 1)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(captured.Images[0].Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1568, cfg.Width)
	assert.Equal(t, 1045, cfg.Height)
}
