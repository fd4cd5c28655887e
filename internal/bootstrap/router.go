package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/blockshare-labs/share-backend/internal/api/http"
	"github.com/blockshare-labs/share-backend/internal/api/http/middleware"
	"github.com/blockshare-labs/share-backend/internal/share"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *pgxpool.Pool
	Redis       *redis.Client // nil disables the read cache
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestIDMiddleware())

	// Shared projects are fetched straight from browser frontends on
	// arbitrary origins, so the API is open to all of them.
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST"},
		AllowHeaders:    []string{"Content-Type", "X-Request-Id"},
		MaxAge:          12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	repo := share.NewRepo(dep.DB)
	var cache *share.Cache
	if dep.Redis != nil {
		cache = share.NewCache(dep.Redis)
	}
	svc := share.NewService(repo, cache)

	api := r.Group("/api")
	share.Register(api, svc)

	return r
}
