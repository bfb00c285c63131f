package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/detailflow/internal/apikey"
	apikeydomain "github.com/smallbiznis/detailflow/internal/apikey/domain"
	"github.com/smallbiznis/detailflow/internal/assessment"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/authorization"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/customer"
	"github.com/smallbiznis/detailflow/internal/intake"
	intakedomain "github.com/smallbiznis/detailflow/internal/intake/domain"
	"github.com/smallbiznis/detailflow/internal/job"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/detailflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/detailflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/detailflow/internal/observability/tracing"
	"github.com/smallbiznis/detailflow/internal/organization"
	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
	"github.com/smallbiznis/detailflow/internal/providers"
	"github.com/smallbiznis/detailflow/internal/providers/pdf"
	"github.com/smallbiznis/detailflow/internal/ratelimit"
	"github.com/smallbiznis/detailflow/internal/storage"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	"github.com/smallbiznis/detailflow/internal/supply"
	supplydomain "github.com/smallbiznis/detailflow/internal/supply/domain"
	"github.com/smallbiznis/detailflow/internal/vehicle"
	"github.com/smallbiznis/detailflow/internal/vision"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	apikey.Module,
	organization.Module,
	customer.Module,
	vehicle.Module,
	job.Module,
	storage.Module,
	vision.Module,
	assessment.Module,
	intake.Module,
	supply.Module,
	providers.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	clock           clock.Clock
	apiKeySvc       apikeydomain.Service
	authzSvc        authorization.Service
	organizationSvc organizationdomain.Service
	gateway         storagedomain.Gateway
	intakeSvc       intakedomain.Service
	assessmentSvc   assessmentdomain.Service
	jobSvc          jobdomain.Service
	supplySvc       supplydomain.Service
	pdfProvider     pdf.Provider
	presignLimiter  presignLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Clock           clock.Clock
	APIKeySvc       apikeydomain.Service
	AuthzSvc        authorization.Service
	OrganizationSvc organizationdomain.Service
	Gateway         storagedomain.Gateway
	IntakeSvc       intakedomain.Service
	AssessmentSvc   assessmentdomain.Service
	JobSvc          jobdomain.Service
	SupplySvc       supplydomain.Service
	PDFProvider     pdf.Provider
	PresignLimiter  *ratelimit.PresignLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		clock:           p.Clock,
		apiKeySvc:       p.APIKeySvc,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		gateway:         p.Gateway,
		intakeSvc:       p.IntakeSvc,
		assessmentSvc:   p.AssessmentSvc,
		jobSvc:          p.JobSvc,
		supplySvc:       p.SupplySvc,
		pdfProvider:     p.PDFProvider,
		obsMetrics:      p.ObsMetrics,
	}
	if p.PresignLimiter.Enabled() {
		svc.presignLimiter = p.PresignLimiter
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	api.POST("/uploads/presign", s.PresignRateLimit(), s.PresignUpload)
	api.POST("/intake/submit", s.SubmitIntake)
	api.GET("/public/organizations/:slug", s.GetPublicOrganization)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired())

	// -------- Estimates --------
	api.POST("/estimates/analyze", s.authorizeOrgAction(authorization.ObjectJob, authorization.ActionJobAssess), s.AnalyzeEstimate)

	// -------- Jobs --------
	api.GET("/jobs/:id", s.authorizeOrgAction(authorization.ObjectJob, authorization.ActionJobView), s.GetJobByID)
	api.POST("/jobs/:id/stage", s.authorizeOrgAction(authorization.ObjectJob, authorization.ActionJobUpdate), s.AdvanceJobStage)
	api.GET("/jobs/:id/estimate.pdf", s.authorizeOrgAction(authorization.ObjectJob, authorization.ActionJobView), s.GetJobEstimatePDF)
	api.POST("/jobs/:id/usage", s.authorizeOrgAction(authorization.ObjectSupply, authorization.ActionSupplyLog), s.LogJobUsage)
	api.GET("/jobs/:id/costs", s.authorizeOrgAction(authorization.ObjectJob, authorization.ActionJobView), s.GetJobCosts)

	// -------- Supplies --------
	api.GET("/supplies/products", s.authorizeOrgAction(authorization.ObjectSupply, authorization.ActionSupplyView), s.ListProducts)
	api.POST("/supplies/products", s.authorizeOrgAction(authorization.ObjectSupply, authorization.ActionSupplyManage), s.CreateProduct)

	// -------- API keys --------
	api.GET("/api-keys", s.authorizeOrgAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeys)
	api.POST("/api-keys", s.authorizeOrgAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
	api.POST("/api-keys/:key_id/revoke", s.authorizeOrgAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)
}
