package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"brandhub-core/internal/audit"
	"brandhub-core/internal/config"
	"brandhub-core/internal/database"
	"brandhub-core/internal/domain"
	httpapi "brandhub-core/internal/http"
	"brandhub-core/internal/logger"
	"brandhub-core/internal/notify"
	"brandhub-core/internal/provision"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/secrets"
	"brandhub-core/internal/service"
	"brandhub-core/internal/tenantdb"
	"brandhub-core/internal/token"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "brandhub-core")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	// Control-plane database (admin role)
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect control-plane database", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureControlPlane(ctx, db); err != nil {
		log.Fatal("Failed to ensure control-plane schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	kv := tenantdb.NewRedisKVStore(redisClient)

	// Master key protecting partition-role secrets
	masterKey := cfg.MasterKey
	if masterKey == "" {
		masterKey, err = secrets.GenerateMasterKey()
		if err != nil {
			log.Fatal("Failed to generate master key", zap.Error(err))
		}
		log.Warn("MASTER_KEY not configured, using an ephemeral key; partition secrets will be unreadable after restart")
	}
	box, err := secrets.NewBox(masterKey)
	if err != nil {
		log.Fatal("Invalid master key", zap.Error(err))
	}

	// Token keys: PEM pair in production, ephemeral for local development
	signingKey, verifyKey, err := loadTokenKeys(cfg, log)
	if err != nil {
		log.Fatal("Failed to load token keys", zap.Error(err))
	}
	tokenGen := token.NewGenerator(signingKey, cfg.Token.Issuer, cfg.Token.Audience, cfg.Token.KeyID, cfg.Token.TTL)
	tokenVer := token.NewVerifier(verifyKey, cfg.Token.Issuer, cfg.Token.Audience)
	tokenVer.AddKey(cfg.Token.KeyID, verifyKey)
	if cfg.Token.RetiredKeyPath != "" && cfg.Token.RetiredKeyID != "" {
		retired, err := token.LoadRSAPublicKeyFromPEM(cfg.Token.RetiredKeyPath)
		if err != nil {
			log.Fatal("Failed to load retired token key", zap.Error(err))
		}
		tokenVer.AddKey(cfg.Token.RetiredKeyID, retired)
		log.Info("Accepting tokens signed under retired key", zap.String("kid", cfg.Token.RetiredKeyID))
	}

	// Repositories, routing and services
	principalsRepo := repository.NewPostgresPrincipalsRepository(db)
	brandsRepo := repository.NewPostgresBrandsRepository(db)

	provisioner := provision.NewProvisioner(db, log)
	router := tenantdb.NewRouter(cfg.Database, cfg.TenantPool, brandsRepo, kv, box, log)
	defer router.Close()
	partitions := tenantdb.NewPartitionStores(router)

	auditRec := audit.NewRecorder(log, redisClient, cfg.Audit.Stream)
	notifier := notify.NewNotifier(cfg.Webhook.URL, log)

	credentialSvc := service.NewCredentialService(partitions, log)
	authSvc := service.NewAuthService(principalsRepo, brandsRepo, partitions, tokenGen, tokenVer, auditRec, log)
	brandSvc := service.NewBrandService(brandsRepo, principalsRepo, provisioner, router, credentialSvc, box, notifier, auditRec, log)
	outletSvc := service.NewOutletService(partitions, auditRec, log)

	seedPrincipal(ctx, cfg, principalsRepo, log)

	// HTTP surface
	apiRouter := httpapi.NewRouter(log)
	apiRouter.RegisterHealthRoutes()
	apiRouter.RegisterAuthRoutes(httpapi.NewAuthHandler(authSvc, log))
	apiRouter.RegisterBrandRoutes(authSvc, httpapi.NewBrandHandler(brandSvc, credentialSvc, log))
	apiRouter.RegisterOutletRoutes(authSvc, httpapi.NewOutletHandler(outletSvc, log))

	srv := service.NewServer(cfg.HTTP.Addr, apiRouter, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// loadTokenKeys reads the configured RSA pair, or generates a throwaway
// pair so local development works without key files.
func loadTokenKeys(cfg *config.Config, log *zap.Logger) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if cfg.Token.PrivateKeyPath != "" && cfg.Token.PublicKeyPath != "" {
		private, err := token.LoadRSAPrivateKeyFromPEM(cfg.Token.PrivateKeyPath)
		if err != nil {
			return nil, nil, err
		}
		public, err := token.LoadRSAPublicKeyFromPEM(cfg.Token.PublicKeyPath)
		if err != nil {
			return nil, nil, err
		}
		return private, public, nil
	}

	log.Warn("Token key paths not configured, using an ephemeral signing key; tokens will not survive a restart")
	key, err := token.GenerateEphemeralKey()
	if err != nil {
		return nil, nil, err
	}
	return key, &key.PublicKey, nil
}

// seedPrincipal bootstraps the first global identity so the API is usable
// on an empty control plane. Existing emails are left untouched.
func seedPrincipal(ctx context.Context, cfg *config.Config, principals repository.PrincipalsRepository, log *zap.Logger) {
	if cfg.Seed.Email == "" || cfg.Seed.Password == "" {
		return
	}
	if _, err := principals.GetPrincipalByEmail(ctx, cfg.Seed.Email); err == nil {
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Warn("Failed to check seed principal", zap.Error(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Warn("Failed to hash seed password", zap.Error(err))
		return
	}
	p := &domain.Principal{
		Email:        cfg.Seed.Email,
		PasswordHash: string(hash),
		DisplayName:  "Bootstrap admin",
		Roles:        []string{"PlatformAdmin"},
	}
	if err := principals.CreatePrincipal(ctx, p); err != nil {
		log.Warn("Failed to seed principal", zap.Error(err))
		return
	}
	log.Info("Seeded bootstrap principal", zap.String("email", cfg.Seed.Email))
}
