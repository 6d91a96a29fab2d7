package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/koru-app/koru/internal/api"
	"github.com/koru-app/koru/internal/auth"
	"github.com/koru-app/koru/internal/cache"
	"github.com/koru-app/koru/internal/config"
	"github.com/koru-app/koru/internal/database"
	"github.com/koru-app/koru/internal/queue"
	"github.com/koru-app/koru/internal/storage"
)

const version = "0.1.0"

// buildStores selects the cache backend for the revocation and
// pending-signup stores.
func buildStores(cfg *config.Config) (auth.RevocationStore, auth.PendingSignupStore, error) {
	switch cfg.Cache.Type {
	case "redis":
		client, err := cache.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return auth.NewRedisRevocationStore(client, cfg.Cache.Prefix),
			auth.NewRedisPendingSignupStore(client, cfg.Cache.Prefix), nil
	case "memory":
		log.Println("Cache type memory: token revocation will not survive restarts")
		return auth.NewMemoryRevocationStore(), auth.NewMemoryPendingSignupStore(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
	}
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting Koru API v%s with config: %s", version, *configPath)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	revocations, pending, err := buildStores(cfg)
	if err != nil {
		log.Fatal(err)
	}

	publisher, err := queue.Dial(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer publisher.Close()

	tokens := auth.NewTokenManager(cfg.JWT.Secret,
		cfg.JWT.AccessDuration, cfg.JWT.RefreshDuration, cfg.JWT.EmailDuration)
	authService := auth.NewService(tokens, db, revocations, pending, publisher, cfg.AppURL, cfg.SignupEnabled)

	var captcha auth.CaptchaVerifier = auth.AllowAllVerifier{}
	if cfg.Captcha.Secret != "" {
		captcha = auth.NewHCaptchaVerifier(cfg.Captcha.Secret)
	} else {
		log.Println("Warning: no captcha secret configured, accepting all challenges")
	}
	authHandler := auth.NewHandler(authService, captcha)

	var exports api.Exporter
	if cfg.Export.Bucket != "" {
		es, err := storage.NewExportStorage(
			cfg.Export.Endpoint, cfg.Export.Region, cfg.Export.Bucket,
			cfg.Export.AccessKeyID, cfg.Export.SecretAccessKey)
		if err != nil {
			log.Fatal(err)
		}
		exports = es
	}

	app, err := api.New(cfg, db, authService, authHandler, publisher, exports)
	if err != nil {
		log.Fatal(err)
	}

	log.Fatal(app.Serve())
}
