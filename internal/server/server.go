package server

import (
	"context"
	"log"
	"net/http"
	"slices"
	"time"

	"anoa.com/mathter/internal/agent"
	"anoa.com/mathter/internal/agent/agents"
	"anoa.com/mathter/internal/agent/providers"
	"anoa.com/mathter/internal/config"
	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/middleware"
	"anoa.com/mathter/pkg/storage"

	accountHttp "anoa.com/mathter/internal/modules/account/delivery/http"
	accountRepo "anoa.com/mathter/internal/modules/account/repository"
	accountService "anoa.com/mathter/internal/modules/account/service"

	courseHttp "anoa.com/mathter/internal/modules/course/delivery/http"
	courseRepo "anoa.com/mathter/internal/modules/course/repository"
	courseService "anoa.com/mathter/internal/modules/course/service"

	groupHttp "anoa.com/mathter/internal/modules/group/delivery/http"
	groupRepo "anoa.com/mathter/internal/modules/group/repository"
	groupService "anoa.com/mathter/internal/modules/group/service"

	learningHttp "anoa.com/mathter/internal/modules/learning/delivery/http"
	learningRepo "anoa.com/mathter/internal/modules/learning/repository"
	learningService "anoa.com/mathter/internal/modules/learning/service"

	notiHttp "anoa.com/mathter/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/mathter/internal/modules/notification/repository"
	notifService "anoa.com/mathter/internal/modules/notification/service"

	searchService "anoa.com/mathter/internal/modules/search/service"

	tutorHttp "anoa.com/mathter/internal/modules/tutor/delivery/http"
	tutorRepo "anoa.com/mathter/internal/modules/tutor/repository"
	tutorService "anoa.com/mathter/internal/modules/tutor/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine    *gin.Engine
	http      *http.Server
	scheduler *agent.Scheduler
}

// NewServer wires every module. redisClient and llm are optional.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, llm providers.LLMProvider) (*Server, error) {
	var imageStorage storage.ImageStorage
	if cfg.CloudinaryCloudName != "" {
		cld, err := storage.NewCloudinaryStorage(storage.CloudinaryOptions{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		})
		if err != nil {
			return nil, err
		}
		imageStorage = cld
	} else {
		log.Println("⚠️ Cloudinary is not configured, avatar uploads are disabled")
	}

	var meiliSvc searchService.MeiliSearchService
	if cfg.MeiliSearchHost != "" {
		meiliClient := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		meiliSvc = searchService.NewMeiliSearchService(meiliClient)
	} else {
		log.Println("⚠️ Meilisearch is not configured, course search uses the database")
	}

	// Account Module
	accountRepository := accountRepo.NewAccountRepository(db)
	accountSvc := accountService.NewAccountService(accountRepository, imageStorage)
	authSvc := accountService.NewAuthService(accountRepository, accountService.AuthOptions{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.JWTTTL,
	})
	accountHandler := accountHttp.NewAccountHandler(accountSvc, authSvc)

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient, checkOrigin(cfg.Origins()))

	// Course Module
	courseRepository := courseRepo.NewCourseRepository(db)
	courseSvc := courseService.NewCourseService(courseRepository, meiliSvc)
	courseHandler := courseHttp.NewCourseHandler(courseSvc)

	// Learning Module
	learningRepository := learningRepo.NewLearningRepository(db)
	learningSvc := learningService.NewLearningService(learningRepository, courseRepository, llm)
	learningHandler := learningHttp.NewLearningHandler(learningSvc)

	// Group Module
	groupRepository := groupRepo.NewGroupRepository(db)
	groupSvc := groupService.NewGroupService(groupRepository, accountRepository, courseRepository, learningRepository, notificationSvc)
	groupHandler := groupHttp.NewGroupHandler(groupSvc)

	// Tutor Module
	tutorRepository := tutorRepo.NewTutorRepository(db)
	tutorSvc := tutorService.NewTutorService(tutorRepository, courseRepository, llm, redisClient, tutorService.TutorOptions{
		Cooldown: cfg.RateLimitTutor,
	})
	tutorHandler := tutorHttp.NewTutorHandler(tutorSvc)

	// Agents
	scheduler := agent.NewScheduler(cfg.AgentTimeout)
	reminderConfig := agents.DefaultHomeworkReminderConfig()
	reminderConfig.Schedule = cfg.ReminderSchedule
	recommendationConfig := agents.DefaultRecommendationConfig()
	recommendationConfig.Schedule = cfg.RecommendationSchedule
	recommendationConfig.Threshold = cfg.RecommendationThreshold
	for _, a := range []agent.Agent{
		agents.NewHomeworkReminderAgent(groupRepository, notificationSvc, reminderConfig),
		agents.NewRecommendationAgent(learningRepository, tutorRepository, notificationSvc, llm, recommendationConfig),
	} {
		if err := scheduler.RegisterAgent(a); err != nil {
			return nil, err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.Origins())

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/notifications/ws"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	teacherOnly := authMiddleware.RequireRole(entity.RoleTeacher, entity.RoleAdmin)
	studentOnly := authMiddleware.RequireRole(entity.RoleStudent)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", accountHandler.Register)
		auth.POST("/login", accountHandler.Login)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/accounts", accountHandler.CreateAccount)
			adminGroup.GET("/accounts", accountHandler.ListAccounts)
			adminGroup.DELETE("/accounts/:id", accountHandler.DeleteAccount)
		}

		// Account routes
		protected.GET("/accounts/me", accountHandler.GetMe)
		protected.PUT("/accounts/me", accountHandler.UpdateMe)
		protected.PUT("/accounts/me/avatar", accountHandler.UpdateAvatar)
		protected.DELETE("/accounts/me", accountHandler.DeleteMe)

		// Course routes
		protected.GET("/courses", courseHandler.ListCourses)
		protected.GET("/courses/search", courseHandler.SearchCourses)
		protected.GET("/courses/:id", courseHandler.GetCourse)
		protected.POST("/courses", teacherOnly, courseHandler.CreateCourse)
		protected.PUT("/courses/:id", teacherOnly, courseHandler.UpdateCourse)
		protected.DELETE("/courses/:id", teacherOnly, courseHandler.DeleteCourse)
		protected.POST("/courses/:id/topics", teacherOnly, courseHandler.CreateTopic)
		protected.GET("/topics/:id", courseHandler.GetTopic)
		protected.DELETE("/topics/:id", teacherOnly, courseHandler.DeleteTopic)
		protected.POST("/topics/:id/tasks", teacherOnly, courseHandler.CreateTask)
		protected.GET("/tasks/:id", courseHandler.GetTask)
		protected.DELETE("/tasks/:id", teacherOnly, courseHandler.DeleteTask)

		// Learning routes
		protected.POST("/tasks/:id/attempts", studentOnly, learningHandler.SubmitAttempt)
		protected.GET("/attempts/me", learningHandler.ListMyAttempts)
		protected.GET("/progress/me", learningHandler.ListMyProgress)

		// Group routes
		protected.POST("/groups", teacherOnly, groupHandler.CreateGroup)
		protected.GET("/groups", groupHandler.ListMyGroups)
		protected.GET("/groups/:id", groupHandler.GetGroup)
		protected.POST("/groups/:id/members", teacherOnly, groupHandler.AddMember)
		protected.DELETE("/groups/:id/members/:studentId", teacherOnly, groupHandler.RemoveMember)
		protected.POST("/groups/:id/homework", teacherOnly, groupHandler.CreateHomework)
		protected.GET("/groups/:id/homework", groupHandler.ListHomework)
		protected.POST("/homework/:id/submit", studentOnly, groupHandler.SubmitHomework)
		protected.GET("/homework/:id/results", teacherOnly, groupHandler.ListResults)

		// Tutor routes
		protected.POST("/tasks/:id/ask", studentOnly, tutorHandler.AskAboutTask)
		protected.GET("/tutor/dialogs", tutorHandler.ListDialogs)
		protected.POST("/tutor/sessions", studentOnly, tutorHandler.StartSession)
		protected.GET("/tutor/sessions", tutorHandler.ListSessions)
		protected.GET("/tutor/sessions/:id", tutorHandler.GetSession)
		protected.POST("/tutor/sessions/:id/messages", studentOnly, tutorHandler.SendMessage)
		protected.GET("/recommendations/me", tutorHandler.ListRecommendations)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:    router,
		scheduler: scheduler,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the agents and serves HTTP until Shutdown is called.
func (s *Server) Run(addr string) error {
	s.scheduler.Start()

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.scheduler.Stop()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func checkOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
