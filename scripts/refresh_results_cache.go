// 手动重建结果缓存脚本
//
// 清空结果缓存前缀后为所有已发布评教重建条目。缓存正常情况下由
// 发布/撤回转换维护，此脚本用于部署后初始化或缓存数据丢失后的恢复，
// 可安全地重复执行。
//
// 用法: go run scripts/refresh_results_cache.go

package main

import (
	"context"
	"course_eval_backend/internal/config"
	"course_eval_backend/internal/repository"
	"course_eval_backend/internal/service"
	"course_eval_backend/pkg/database"
	"course_eval_backend/pkg/logger"
	"log"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Redis连接失败: %v", err)
	}

	evaluationRepo := repository.NewEvaluationRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	userRepo := repository.NewUserRepository(db)

	resultsService := service.NewResultsService(evaluationRepo, answerRepo, userRepo, cfg)
	gradeService := service.NewGradeService(cfg)
	store := service.NewRedisResultStore(rdb)
	cacheService := service.NewResultsCacheService(store, resultsService, gradeService, evaluationRepo, cfg)

	log.Println("开始重建结果缓存...")
	refreshed, err := cacheService.RefreshAll(context.Background())
	if err != nil {
		log.Fatalf("重建失败: %v", err)
	}
	log.Printf("完成，共重建 %d 个评教的缓存", refreshed)
}
