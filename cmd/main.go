package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/avolhov/recovery-server/internal/config"
	"github.com/avolhov/recovery-server/internal/logger"
	"github.com/avolhov/recovery-server/internal/notify"
	"github.com/avolhov/recovery-server/internal/repository/postgres"
	redisrepo "github.com/avolhov/recovery-server/internal/repository/redis"
	"github.com/avolhov/recovery-server/internal/secrets"
	"github.com/avolhov/recovery-server/internal/service"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	secret := cfg.Cipher.Secret
	if secret == "" {
		logger.Warn("no encryption secret configured, using insecure development default")
		secret = secrets.DevelopmentSecret
	}
	cipher, err := secrets.NewCipher(secret)
	if err != nil {
		logger.Fatal("failed to initialize cipher", "error", err)
	}
	if !cipher.SelfTest() {
		logger.Fatal("cipher self test failed")
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	settingRepo := postgres.NewSettingRepository(db)
	userRepo := postgres.NewUserRepository(db)
	verificationTokenRepo := postgres.NewVerificationTokenRepository(db)
	resetTokenRepo := postgres.NewResetTokenRepository(db)
	sessionRepo := redisrepo.NewSessionRepository(redisClient)

	notifier := notify.NewLogNotifier(logger)

	settingsService := service.NewSettings(settingRepo, cipher, logger)
	verificationTokens := service.NewTokenLifecycle(verificationTokenRepo, service.VerificationTokenTTL, logger)
	resetTokens := service.NewTokenLifecycle(resetTokenRepo, service.ResetTokenTTL, logger)

	// No transport is mounted here; the flows are driven by the embedding
	// application. Constructing them verifies the dependency graph at boot.
	_ = service.NewEmailVerification(verificationTokens, settingsService, userRepo, notifier, logger)
	_ = service.NewPasswordReset(resetTokens, settingsService, userRepo, sessionRepo, notifier, logger)

	logger.Info("mail sending", "enabled", settingsService.GetBool(ctx, "global.send_mail", false))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runCleanupLoop(ctx, logger, time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute, verificationTokens, resetTokens)
	}()

	logAppVersion()
	logger.Info("recovery server started")

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	wg.Wait()
	logger.Info("shutdown complete")
}

// runCleanupLoop periodically sweeps expired tokens from every lifecycle
// until ctx is cancelled.
func runCleanupLoop(ctx context.Context, logger *logger.Logger, interval time.Duration, lifecycles ...*service.TokenLifecycle) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, lc := range lifecycles {
				count, err := lc.CleanupExpired(ctx)
				if err != nil {
					logger.Error("failed to clean up expired tokens", "error", err)
					continue
				}
				if count > 0 {
					logger.Info("cleaned up expired tokens", "count", count)
				}
			}
		}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
