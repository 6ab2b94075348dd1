package commands

import (
	"context"
	"log"
	"net/http"

	"fernpost/internal/cache"
	"fernpost/internal/config"
	"fernpost/internal/database"
	"fernpost/internal/engine"
	"fernpost/internal/handlers"
	"fernpost/internal/media"
	"fernpost/internal/middleware"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	mediaStore, err := media.NewStore(cfg.MediaDir)
	if err != nil {
		return err
	}

	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, metrics, db)

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	indexCache := cache.NewPageCache(cfg.IndexCacheTTL)

	server := handlers.NewServer(system, eng, metrics, auth, mediaStore, indexCache)
	cors := middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.AllowedOrigins))

	log.Printf("Starting server on %s (database: %s)", cfg.Addr(), cfg.Database.Type)
	return http.ListenAndServe(cfg.Addr(), cors(server.Routes()))
}
