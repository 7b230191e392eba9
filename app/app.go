package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"research_portal_api/config"
	"research_portal_api/db"
	"research_portal_api/identity"
	"research_portal_api/session"
	"research_portal_api/storage"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	RDB      *redis.Client
	Log      *zap.Logger
	Verifier identity.Verifier
	Tokens   *session.TokenCache
	Objects  storage.ObjectStore
	Config   Config
}

// Config 从环境变量读取
type Config struct {
	Env               string
	Port              string
	DatabaseURL       string
	RedisAddr         string
	RedisPwd          string
	WebOrigins        []string
	FirebaseProjectID string
	TokenCacheTTL     time.Duration
	LastSeenThrottle  time.Duration
	PresignTTL        time.Duration
	R2                storage.R2Config
}

func (c Config) Development() bool { return c.Env == "development" }

func MustNew() *App {
	cfg := LoadConfig()
	log := NewLogger(cfg.Env)

	// --- DB: Postgres ---
	dbConn, err := db.ConnectDB(cfg.DatabaseURL, cfg.Development())
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// --- Firebase ID tokens, cached in Redis ---
	if cfg.FirebaseProjectID == "" {
		log.Fatal("FIREBASE_PROJECT_ID is required")
	}
	tokens := session.NewTokenCache(rdb, cfg.TokenCacheTTL)
	verifier := &session.CachingVerifier{
		Next:  identity.NewFirebaseVerifier(cfg.FirebaseProjectID, identity.NewGoogleCerts()),
		Cache: tokens,
		OnCacheError: func(err error) {
			log.Warn("token cache", zap.Error(err))
		},
	}

	// --- R2 ---
	if err := storage.CheckBase(cfg.R2.PublicBaseURL); err != nil {
		log.Fatal("R2_PUBLIC_BASE_URL", zap.Error(err))
	}
	objects, err := storage.NewR2(cfg.R2)
	if err != nil {
		log.Fatal("object storage", zap.Error(err))
	}

	// --- Gin ---
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	useCORS(r, cfg.WebOrigins)

	log.Info("app ready",
		zap.String("env", cfg.Env),
		zap.String("redis", cfg.RedisAddr),
		zap.String("bucket", cfg.R2.Bucket))
	return &App{
		Router: r, DB: dbConn, RDB: rdb, Log: log,
		Verifier: verifier, Tokens: tokens, Objects: objects, Config: cfg,
	}
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.Log.Sync()
}

func LoadConfig() Config {
	dsn := config.Get("DATABASE_URL", "")
	if dsn == "" {
		dsn = db.DSNFromParts(
			config.Get("DB_HOST", "127.0.0.1"),
			config.Get("DB_USER", "postgres"),
			config.Get("DB_PASSWORD", "postgres"),
			config.Get("DB_NAME", "research_portal"),
			config.Get("DB_PORT", "5432"),
		)
	}
	return Config{
		Env:               config.Get("APP_ENV", "production"),
		Port:              config.Get("PORT", "3001"),
		DatabaseURL:       dsn,
		RedisAddr:         config.Get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:          config.Get("REDIS_PASSWORD", ""),
		WebOrigins:        config.GetList("WEB_ORIGIN", []string{"http://localhost:5173"}),
		FirebaseProjectID: config.Get("FIREBASE_PROJECT_ID", ""),
		TokenCacheTTL:     config.GetSeconds("TOKEN_CACHE_TTL_SECONDS", 10*time.Minute),
		LastSeenThrottle:  config.GetSeconds("LAST_SEEN_THROTTLE_SECONDS", 5*time.Minute),
		PresignTTL:        config.GetSeconds("R2_PRESIGN_TTL_SECONDS", 15*time.Minute),
		R2: storage.R2Config{
			AccountID:       config.Get("R2_ACCOUNT_ID", ""),
			AccessKeyID:     config.Get("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: config.Get("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          config.Get("R2_BUCKET", ""),
			PublicBaseURL:   config.Get("R2_PUBLIC_BASE_URL", ""),
		},
	}
}
