package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storygraph/backend/internal/adapter"
	"storygraph/backend/internal/catalog"
	"storygraph/backend/internal/cluster"
	"storygraph/backend/internal/extractor"
	"storygraph/backend/internal/graph"
	"storygraph/backend/internal/identity"
	"storygraph/backend/internal/pipeline"
	"storygraph/backend/internal/vector"
	"storygraph/backend/pkg/config"
	"storygraph/backend/pkg/logger"
)

const summarizeSystemPrompt = `You summarize story facts retrieved from a knowledge graph.

Given a JSON list of fact rows, write a short prose paragraph a writer can
use as context. Mention every distinct fact once. Respond with plain text.`

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting narrative graph server...")

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	proxy := graph.NewProxy(driver, cfg.Neo4jDatabase)

	// Initialize vector index and LLM client
	index, err := vector.NewQdrant(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		log.Fatal("Failed to create vector index client", zap.Error(err))
	}
	llm := adapter.NewLLMClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ModelID, cfg.EmbeddingModel)
	templates := catalog.New(index, llm, cfg.EmbeddingDims)

	// Verify stores and prepare collections concurrently
	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(bootCtx)
	g.Go(func() error { return proxy.VerifyConnectivity(gctx) })
	g.Go(func() error { return index.EnsureCollection(gctx, vector.CollectionAliases, cfg.EmbeddingDims) })
	g.Go(func() error { return index.EnsureCollection(gctx, vector.CollectionClusters, cfg.EmbeddingDims) })
	g.Go(func() error { return templates.Bootstrap(gctx) })
	if err := g.Wait(); err != nil {
		log.Fatal("Startup checks failed", zap.Error(err))
	}

	// Wire the pipeline
	resolver := identity.NewResolver(index, llm, llm)
	filler := extractor.New(llm)
	clusters := cluster.New(index, llm)
	extraction := pipeline.NewExtraction(templates, filler, resolver, clusters, proxy, cfg.TopKTemplates)
	augmentation := pipeline.NewAugmentation(templates, filler, resolver, proxy, cfg.TopKTemplates,
		func(ctx context.Context, rows []map[string]any) (string, error) {
			body, err := json.Marshal(rows)
			if err != nil {
				return "", err
			}
			return llm.CompleteJSON(ctx, summarizeSystemPrompt, string(body))
		})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(log, cfg.AuthToken, cfg.MaxTextLength, extraction, augmentation)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
