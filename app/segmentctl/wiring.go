package main

import (
	"customerSegments/business/segmentation"
	"customerSegments/internal/jobs"
	"customerSegments/internal/repository/llm"
	psqlRepo "customerSegments/internal/repository/postgres"
	redisRepo "customerSegments/internal/repository/redis"
	"customerSegments/pkg/config"
	"customerSegments/pkg/database"
	redisdb "customerSegments/pkg/database/redis"
	"customerSegments/pkg/logger"

	"gorm.io/gorm"
)

type deps struct {
	cfg       *config.Config
	db        *gorm.DB
	discovery *segmentation.DiscoveryService
	scoring   *segmentation.ScoringService
	histories segmentation.HistoryStore
	job       *jobs.DiscoveryJob
	closers   []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	logger.Sync()
}

// buildDeps mirrors the server wiring. Redis and the LLM namer stay optional.
func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.App.Environment)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, db: db}
	d.closers = append(d.closers, func() { _ = database.Close(db) })
	if err := psqlRepo.AutoMigrate(db); err != nil {
		d.Close()
		return nil, err
	}

	var (
		cache segmentation.SegmentCache
		lock  jobs.RunLock
	)
	if client, err := redisdb.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, continuing without segment cache", "error", err)
	} else {
		d.closers = append(d.closers, func() { _ = redisdb.CloseRedisClient(client) })
		cache = redisRepo.NewSegmentCache(client, cfg.Redis.SegmentTTL)
		lock = redisRepo.NewRunLock(client)
	}

	var namer segmentation.Namer
	if cfg.LLM.LLMAPIKey != "" {
		n, err := llm.NewNamer(llm.Config{
			BaseURL:     cfg.LLM.LLMBaseURL,
			APIKey:      cfg.LLM.LLMAPIKey,
			Model:       cfg.LLM.LLMModel,
			RatePerMin:  cfg.LLM.LLMRatePerMin,
			MaxTokens:   cfg.LLM.LLMMaxTokens,
			Temperature: cfg.LLM.LLMTemperature,
		})
		if err != nil {
			d.Close()
			return nil, err
		}
		namer = n
	}

	histories := psqlRepo.NewOrderHistoryRepository(db)
	segments := psqlRepo.NewSegmentRepository(db)
	profiles := psqlRepo.NewProfileRepository(db)

	engineCfg := cfg.SegmentationEngine()
	registry := segmentation.DefaultAxisRegistry()
	d.discovery, err = segmentation.NewDiscoveryService(engineCfg, registry, namer)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.histories = histories
	d.scoring = segmentation.NewScoringService(engineCfg, registry, histories, segments, profiles, cache)
	d.job = jobs.NewDiscoveryJob(db, d.discovery, histories, segments, profiles, cache, lock)
	return d, nil
}
