package app

import (
	"course_eval_backend/docs"
	"course_eval_backend/internal/config"
	"course_eval_backend/internal/middleware"
	"course_eval_backend/internal/model"
	"course_eval_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)

		// 结果页：已发布的对所有登录用户可见，可见内容在服务层过滤
		authGroup.GET("/results", c.results.Index)
		authGroup.GET("/results/semesters/:id", c.results.SemesterDetail)
		authGroup.GET("/results/evaluations/:id", c.results.EvaluationDetail)
		authGroup.GET("/results/evaluations/:id/export", c.results.Export)

		// 成绩单
		authGroup.GET("/evaluations/:id/grades", c.gradeDocument.List)
		authGroup.GET("/grades/:id/download", c.gradeDocument.Download)

		gradePublisher := authGroup.Group("")
		gradePublisher.Use(middleware.RoleMiddleware(model.GradePublisher))
		{
			gradePublisher.POST("/evaluations/:id/grades", c.gradeDocument.Upload)
			gradePublisher.DELETE("/grades/:id", c.gradeDocument.Delete)
		}

		// 管理接口：评审员及以上
		staff := authGroup.Group("/staff")
		staff.Use(middleware.RoleMiddleware(model.Reviewer))
		{
			staff.POST("/semesters", c.staff.CreateSemester)
			staff.POST("/evaluations", c.staff.CreateEvaluation)
			staff.POST("/evaluations/:id/:action", c.staff.Transition)
			staff.POST("/textanswers/:id/review", c.staff.ReviewTextAnswer)
			staff.POST("/cache/refresh", c.staff.RefreshCache)
		}
	}
}
