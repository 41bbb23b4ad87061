package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Alsairy/Masark-Engine-sub003/internal/config"
	"github.com/Alsairy/Masark-Engine-sub003/internal/db"
	apihttp "github.com/Alsairy/Masark-Engine-sub003/internal/http"
	applog "github.com/Alsairy/Masark-Engine-sub003/internal/logger"
	"github.com/Alsairy/Masark-Engine-sub003/internal/repository"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := applog.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		logger.Info("schema applied")
	}

	sessionRepo := repository.NewPgSessionRepository(pool)
	answerRepo := repository.NewPgAnswerRepository(pool)
	questionRepo := repository.NewPgQuestionRepository(pool)
	careerRepo := repository.NewPgCareerRepository(pool)
	typeRepo := repository.NewPgPersonalityTypeRepository(pool)

	// Sin Redis la cache de referencia queda en memoria del proceso.
	refCache := service.NewMemoryReferenceCache()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory reference cache", zap.Error(err))
		} else {
			refCache = service.NewRedisReferenceCache(redisClient)
		}
		cancel()
	}
	refData := service.NewReferenceData(logger, refCache, questionRepo, careerRepo, service.ReferenceTTLs{
		Questions: cfg.CacheTTLQuestions,
		Matches:   cfg.CacheTTLMatches,
	})

	resolverCfg := service.DefaultResolverConfig()
	resolverCfg.Weights = service.WeightTable{
		Weak:     cfg.WeightWeak,
		Moderate: cfg.WeightModerate,
		Strong:   cfg.WeightStrong,
	}
	assessmentSvc, err := service.NewAssessmentService(logger, sessionRepo, answerRepo, careerRepo, refData, resolverCfg)
	if err != nil {
		logger.Fatal("assessment service", zap.Error(err))
	}
	careerSvc, err := service.NewCareerService(logger, careerRepo, typeRepo, refData, service.MatchSettings{
		Boosts:    service.BoostTable{General: cfg.BoostGeneral, Gifted: cfg.BoostGifted},
		Threshold: cfg.MatchThreshold,
		Limit:     cfg.MatchLimit,
	})
	if err != nil {
		logger.Fatal("career service", zap.Error(err))
	}

	assessmentHandler := apihttp.NewAssessmentHandler(logger, assessmentSvc, careerSvc)
	careerHandler := apihttp.NewCareerHandler(logger, careerSvc)
	router := apihttp.NewRouter(logger, assessmentHandler, careerHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
