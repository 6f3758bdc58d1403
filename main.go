// @title 课程评教结果 API
// @version 1.0
// @description 课程评教系统的结果聚合与发布后端。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"course_eval_backend/internal/app"
	"course_eval_backend/internal/config"
	"course_eval_backend/pkg/configwatcher"
	"course_eval_backend/pkg/logger"
	"flag"
	"log"
)

func main() {
	configPath := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 阈值配置热重载
	go configwatcher.WatchConfig(*configPath+"/config.yaml", application.ReloadConfig)

	application.Run()
}
