package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/middleware"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"
	"github.com/rshatalov/rpy/internal/version"
)

// Services groups the service dependencies the HTTP layer needs
type Services struct {
	Study        services.StudyServiceInterface
	Questions    services.QuestionServiceInterface
	Tags         services.TagServiceInterface
	Planning     services.PlanningServiceInterface
	TimeTracking services.TimeTrackingServiceInterface
	Inspection   services.InspectionServiceInterface
}

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(
	cfg *config.Config,
	svc Services,
	httpMetrics *observability.HTTPMetrics,
	logger *observability.Logger,
) *gin.Engine {
	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.DefaultErrorRecoveryConfig()))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(requestLogMiddleware(logger))

	// Health check endpoint (defined before tracing and rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.OpenTelemetry.ServiceName})
	})

	router.Use(observability.GinMiddleware(cfg.OpenTelemetry.ServiceName))
	router.Use(observability.ErrorSpanMiddleware())

	if httpMetrics != nil {
		router.Use(httpMetrics.Middleware())
		router.GET("/metrics", httpMetrics.Handler())
	}

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	router.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	studyHandler := NewStudyHandler(svc.Study, logger)
	questionHandler := NewQuestionHandler(svc.Questions, logger)
	tagHandler := NewTagHandler(svc.Tags, logger)
	planningHandler := NewPlanningHandler(svc.Planning, logger)
	timeHandler := NewTimeTrackingHandler(svc.TimeTracking, logger)
	routeListing := NewRouteListingHandler(cfg.OpenTelemetry.ServiceName)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get(cfg.OpenTelemetry.ServiceName))
		})
		v1.GET("/routes", routeListing.GetRouteListingJSON)

		sessions := v1.Group("/study/sessions")
		{
			sessions.POST("", studyHandler.StartSession)
			sessions.GET("", studyHandler.ListSessions)
			sessions.GET("/:id", studyHandler.GetSession)
			sessions.POST("/:id/end", studyHandler.EndSession)
			sessions.DELETE("/:id", studyHandler.DeleteSession)
			sessions.POST("/:id/next", studyHandler.SelectNext)
			sessions.POST("/:id/questions/:question_id/rating", studyHandler.RateQuestion)
			sessions.GET("/:id/statistics", studyHandler.GetSessionStatistics)
		}

		questions := v1.Group("/questions")
		{
			questions.GET("", questionHandler.ListQuestions)
			questions.POST("", questionHandler.CreateQuestion)
			questions.GET("/:id", questionHandler.GetQuestion)
			questions.PUT("/:id", questionHandler.UpdateQuestion)
			questions.DELETE("/:id", questionHandler.DeleteQuestion)
		}

		tags := v1.Group("/tags")
		{
			tags.GET("", tagHandler.ListTags)
			tags.POST("", tagHandler.CreateTag)
			tags.GET("/:slug", tagHandler.GetTag)
			tags.PUT("/:slug", tagHandler.UpdateTag)
			tags.DELETE("/:slug", tagHandler.DeleteTag)
		}

		acts := v1.Group("/acts")
		{
			acts.GET("", planningHandler.ListActs)
			acts.GET("/tree", planningHandler.ActTree)
			acts.POST("", planningHandler.CreateAct)
			acts.POST("/reorder", planningHandler.ReorderActs)
			acts.GET("/:id", planningHandler.GetAct)
			acts.PUT("/:id", planningHandler.UpdateAct)
			acts.DELETE("/:id", planningHandler.DeleteAct)
			acts.GET("/:id/notes", planningHandler.ListNotes(models.NoteKindAct))
			acts.POST("/:id/notes", planningHandler.AddNote(models.NoteKindAct))
			acts.DELETE("/:id/notes/:note_id", planningHandler.DeleteNote(models.NoteKindAct))
			acts.GET("/:id/times", timeHandler.ListTimes)
			acts.PUT("/:id/times/:day", timeHandler.UpsertTime)
			acts.POST("/:id/times/:day", timeHandler.AddTime)
		}

		plans := v1.Group("/plans")
		{
			plans.GET("", planningHandler.ListPlans)
			plans.GET("/tree", planningHandler.PlanTree)
			plans.POST("", planningHandler.CreatePlan)
			plans.POST("/reorder", planningHandler.ReorderPlans)
			plans.GET("/:id", planningHandler.GetPlan)
			plans.PUT("/:id", planningHandler.UpdatePlan)
			plans.DELETE("/:id", planningHandler.DeletePlan)
			plans.GET("/:id/notes", planningHandler.ListNotes(models.NoteKindPlan))
			plans.POST("/:id/notes", planningHandler.AddNote(models.NoteKindPlan))
			plans.DELETE("/:id/notes/:note_id", planningHandler.DeleteNote(models.NoteKindPlan))
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", planningHandler.ListTasks)
			tasks.POST("", planningHandler.CreateTask)
			tasks.GET("/:id", planningHandler.GetTask)
			tasks.PUT("/:id", planningHandler.UpdateTask)
			tasks.DELETE("/:id", planningHandler.DeleteTask)
		}

		timers := v1.Group("/timers")
		{
			timers.GET("", timeHandler.ListTimers)
			timers.POST("", timeHandler.CreateTimer)
			timers.GET("/:id", timeHandler.GetTimer)
			timers.DELETE("/:id", timeHandler.DeleteTimer)
			timers.POST("/:id/start", timeHandler.StartTimer)
			timers.POST("/:id/pause", timeHandler.PauseTimer)
			timers.POST("/:id/stop", timeHandler.StopTimer)
		}

		if cfg.Server.EnableAdminRoutes && svc.Inspection != nil {
			adminHandler := NewAdminHandlerWithLogger(svc.Inspection, logger)
			admin := v1.Group("/admin/db")
			{
				admin.GET("/tables", adminHandler.ListTables)
				admin.GET("/tables/:table", adminHandler.PeekTable)
			}
		}
	}

	routeListing.CollectRoutes(router)

	return router
}

// requestLogMiddleware logs one structured line per request at a level chosen by status code
func requestLogMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.route":       c.FullPath(),
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			fields["http.error_type"] = "server_error"
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			fields["http.error_type"] = "client_error"
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
