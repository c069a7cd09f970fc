package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"recruitflow/internal/config"
	"recruitflow/internal/db"
	"recruitflow/internal/email"
	apihttp "recruitflow/internal/http"
	"recruitflow/internal/repository"
	"recruitflow/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	accountRepo := repository.NewPgAccountRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		challengeStore service.ChallengeStore
		resendLimiter  service.ResendLimiter
		redisClient    *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			challengeStore = service.NewRedisChallengeStore(redisClient)
			resendLimiter = service.NewRedisResendLimiter(redisClient, 10*time.Minute, 3)
		}
		cancel()
	}

	hasher := service.NewPasswordHasher(cfg.PasswordPepper)
	if cfg.PasswordPepper == "" {
		logger.Warn("password pepper not configured")
	}

	lockout := service.NewLockoutPolicy(accountRepo, cfg.LockoutThreshold, time.Duration(cfg.LockoutMinutes)*time.Minute)
	sessionSvc := service.NewSessionService(logger, sessionRepo, time.Duration(cfg.SessionTTLHours)*time.Hour)
	twoFactorSvc := service.NewTwoFactorService(logger, accountRepo, emailSender, time.Duration(cfg.TwoFactorTTLMinutes)*time.Minute)
	authSvc := service.NewAuthService(logger, accountRepo, hasher, lockout, sessionSvc, twoFactorSvc, challengeStore, resendLimiter)
	resetSvc := service.NewResetService(logger, accountRepo, sessionSvc, hasher, emailSender, time.Duration(cfg.ResetTTLHours)*time.Hour, cfg.PublicBaseURL)
	accountSvc := service.NewAccountService(logger, accountRepo, hasher)

	accountHandler := apihttp.NewAccountHandler(logger, accountSvc)
	authHandler := apihttp.NewAuthHandler(logger, authSvc, resetSvc)
	sessionHandler := apihttp.NewSessionHandler(logger, authSvc, accountSvc)
	router := apihttp.NewRouter(logger, authSvc, accountHandler, authHandler, sessionHandler)

	// Barrido horario de sesiones vencidas; higiene, no correccion.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		reaped, err := sessionSvc.CleanupExpired(context.Background())
		if err != nil {
			logger.Warn("session cleanup failed", zap.Error(err))
			return
		}
		if reaped > 0 {
			logger.Info("expired sessions removed", zap.Int64("count", reaped))
		}
	}); err != nil {
		logger.Warn("session cleanup schedule failed", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
