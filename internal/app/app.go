package app

import (
	"context"
	"course_eval_backend/internal/config"
	"course_eval_backend/internal/controller"
	"course_eval_backend/internal/repository"
	"course_eval_backend/internal/service"
	"course_eval_backend/pkg/database"
	"course_eval_backend/pkg/logger"
	"course_eval_backend/pkg/monitoring"
	"course_eval_backend/pkg/security"
	"course_eval_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	semester      *repository.SemesterRepository
	evaluation    *repository.EvaluationRepository
	answer        *repository.AnswerRepository
	gradeDocument *repository.GradeDocumentRepository
}

type services struct {
	auth          *service.AuthService
	storage       *service.StorageService
	results       *service.ResultsService
	grades        *service.GradeService
	cache         *service.ResultsCacheService
	workflow      *service.WorkflowService
	gradeDocument *service.GradeDocumentService
}

type controllers struct {
	auth          *controller.AuthController
	results       *controller.ResultsController
	staff         *controller.StaffController
	gradeDocument *controller.GradeDocumentController
	health        *controller.HealthController
}

// RegisterConfigCallback 注册配置热重载回调
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig 配置文件变更时由 configwatcher 调用
func (a *App) ReloadConfig(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("配置已热重载")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		semester:      repository.NewSemesterRepository(db),
		evaluation:    repository.NewEvaluationRepository(db),
		answer:        repository.NewAnswerRepository(db),
		gradeDocument: repository.NewGradeDocumentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.results = service.NewResultsService(repos.evaluation, repos.answer, repos.user, cfg)
	s.grades = service.NewGradeService(cfg)

	store := service.NewRedisResultStore(rdb)
	s.cache = service.NewResultsCacheService(store, s.results, s.grades, repos.evaluation, cfg)

	s.workflow = service.NewWorkflowService(repos.evaluation, repos.answer, s.grades)
	// 发布/撤回时由缓存服务维护派生数据
	s.workflow.RegisterHook(s.cache.OnEvaluationStateChanged)

	s.gradeDocument = service.NewGradeDocumentService(repos.gradeDocument, repos.evaluation, s.storage)

	// 阈值类配置支持热重载
	a.RegisterConfigCallback(s.results.UpdateConfig)
	a.RegisterConfigCallback(s.grades.UpdateConfig)
	a.RegisterConfigCallback(s.cache.UpdateConfig)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:          controller.NewAuthController(s.auth),
		results:       controller.NewResultsController(s.results, s.grades, s.cache, s.auth, repos.semester, repos.evaluation),
		staff:         controller.NewStaffController(s.workflow, s.cache, repos.semester, repos.evaluation, repos.answer),
		gradeDocument: controller.NewGradeDocumentController(s.gradeDocument, s.auth),
		health:        controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, repos, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("course-eval", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
