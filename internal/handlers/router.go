package handlers

import (
	"net/http"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/observability"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type HandlerManager struct {
	subjectHandler  *SubjectHandler
	facultyHandler  *FacultyHandler
	questionHandler *QuestionHandler
	paperHandler    *PaperHandler
	aiHandler       *AIHandler
	uploadHandler   *UploadHandler
	editorHandler   *EditorHandler
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		subjectHandler:  NewSubjectHandler(serviceManager.Subject(), serviceManager.CourseOutcome(), logger),
		facultyHandler:  NewFacultyHandler(serviceManager.Faculty(), logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), logger),
		paperHandler:    NewPaperHandler(serviceManager.Paper(), logger),
		aiHandler:       NewAIHandler(serviceManager.AI(), logger),
		uploadHandler:   NewUploadHandler(serviceManager.Upload(), logger),
		editorHandler:   NewEditorHandler(serviceManager.Editor(), logger),
	}
}

// SetupRoutes sets up all API routes. authenticate guards everything under
// /api/v1 except the public upload route.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authenticate gin.HandlerFunc) {
	router.GET("/health", HealthCheck)

	// Image tags fetch uploads without credentials.
	router.GET("/uploads/*key", hm.uploadHandler.ServeBlob)

	v1 := router.Group("/api/v1")
	v1.Use(authenticate)
	{
		me := v1.Group("/me")
		{
			me.GET("", hm.facultyHandler.Profile)
			me.GET("/subjects", hm.facultyHandler.MySubjects)
		}

		subjects := v1.Group("/subjects")
		{
			subjects.GET("", hm.subjectHandler.ListSubjects)
			subjects.POST("", auth.RequireRole(models.RoleAdmin), hm.subjectHandler.CreateSubject)
			subjects.GET("/:id", hm.subjectHandler.GetSubject)
			subjects.GET("/:id/course-outcomes", hm.subjectHandler.ListCourseOutcomes)
			subjects.POST("/:id/course-outcomes", hm.subjectHandler.SaveCourseOutcomes)
		}

		outcomes := v1.Group("/course-outcomes")
		{
			outcomes.PUT("/:id", hm.subjectHandler.UpdateCourseOutcome)
			outcomes.DELETE("/:id", hm.subjectHandler.DeleteCourseOutcome)
		}

		faculty := v1.Group("/faculty")
		faculty.Use(auth.RequireRole(models.RoleAdmin))
		{
			faculty.GET("", hm.facultyHandler.ListFaculty)
			faculty.PUT("/:id", hm.facultyHandler.UpdateFaculty)
			faculty.DELETE("/:id", hm.facultyHandler.DeleteFaculty)
			faculty.POST("/:id/approve", hm.facultyHandler.ApproveFaculty)
			faculty.POST("/:id/deny", hm.facultyHandler.DenyFaculty)
			faculty.POST("/:id/subjects", hm.facultyHandler.AssignSubject)
		}

		questions := v1.Group("/questions")
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.POST("/batch", hm.questionHandler.CreateQuestionsBatch)
			questions.POST("/import", hm.questionHandler.ImportQuestions)
			questions.GET("/export", hm.questionHandler.ExportQuestions)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestionContent)
			questions.PUT("/:id/course-outcome", hm.questionHandler.UpdateQuestionCourseOutcome)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		papers := v1.Group("/papers")
		{
			papers.POST("", hm.paperHandler.ComposePaper)
			papers.GET("/:id", hm.paperHandler.GetPaper)
			papers.DELETE("/:id", hm.paperHandler.DiscardPaper)
			papers.POST("/:id/move", hm.paperHandler.MoveEntry)
			papers.DELETE("/:id/entries/:index", hm.paperHandler.RemoveEntry)
			papers.PUT("/:id/header", hm.paperHandler.UpdateHeader)
			papers.GET("/:id/print", hm.paperHandler.PrintPaper)
			papers.GET("/:id/export", hm.paperHandler.ExportPaper)
		}

		aiRoutes := v1.Group("/ai")
		{
			aiRoutes.POST("/generate-paper", hm.aiHandler.GeneratePaper)
			aiRoutes.POST("/check-duplicate", hm.aiHandler.CheckDuplicate)
		}

		v1.POST("/uploads/images", hm.uploadHandler.UploadImage)

		sessions := v1.Group("/editor/sessions")
		{
			sessions.POST("", hm.editorHandler.OpenSession)
			sessions.GET("/:id", hm.editorHandler.GetSession)
			sessions.DELETE("/:id", hm.editorHandler.CloseSession)
			sessions.POST("/:id/blocks", hm.editorHandler.InsertBlock)
			sessions.POST("/:id/blocks/move", hm.editorHandler.MoveBlock)
			sessions.DELETE("/:id/blocks/:index", hm.editorHandler.RemoveBlock)
			sessions.PUT("/:id/math", hm.editorHandler.EditMath)
			sessions.PUT("/:id/alignment", hm.editorHandler.SetAlignment)
			sessions.POST("/:id/images", hm.editorHandler.InsertImage)
			sessions.POST("/:id/clear", hm.editorHandler.ClearSession)
			sessions.POST("/:id/commit", hm.editorHandler.CommitSession)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": observability.ServiceName,
	})
}

type RouterConfig struct {
	Services    services.ServiceManager
	Verifier    auth.Verifier
	Logger      utils.Logger
	CORSOrigins []string
	Tracing     bool
	// MaxMultipartMemory bounds in-memory multipart parsing.
	MaxMultipartMemory int64
}

// NewRouter builds the gin engine with middleware and every route. The
// faculty service doubles as the principal resolver.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewNopLogger()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.MaxMultipartMemory > 0 {
		router.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	if cfg.Tracing {
		router.Use(otelgin.Middleware(observability.ServiceName))
	}
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(utils.RequestID(), utils.ContextLogger(cfg.Logger), utils.LoggerMiddleware(cfg.Logger))

	hm := NewHandlerManager(cfg.Services, cfg.Logger)
	hm.SetupRoutes(router, auth.Middleware(cfg.Verifier, cfg.Services.Faculty(), cfg.Logger))
	return router
}

// corsConfig allows credentials for the listed origins. Without a list every
// origin is allowed and credentials are not.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Requested-With", utils.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
