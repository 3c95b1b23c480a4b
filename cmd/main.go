package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-qa/internal/backend"
	"pdf-qa/internal/chatui"
	"pdf-qa/internal/chunker"
	"pdf-qa/internal/config"
	"pdf-qa/internal/embedding"
	"pdf-qa/internal/handlers"
	"pdf-qa/internal/helper"
	"pdf-qa/internal/llmservice"
	"pdf-qa/internal/metrics"
	"pdf-qa/internal/rag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "pdf-qa",
		Short: "Ask questions about an uploaded PDF",
		Long:  "A retrieval-augmented question-answering service over a single uploaded PDF, with a browser chat client.",
	}

	rootCmd.AddCommand(createServeCommand())
	rootCmd.AddCommand(createChatCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		helper.InitLogger("info", true)
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.InitLogger(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(gin.ReleaseMode)
	return cfg
}

func createServeCommand() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the question-answering API",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.ValidateBackend(); err != nil {
				log.Fatal().Err(err).Msg("Invalid configuration")
			}
			if err := runBackend(cfg); err != nil {
				log.Fatal().Err(err).Msg("Backend stopped")
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Listen host")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "Listen port")
	return cmd
}

func createChatCommand() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the browser chat client",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if cmd.Flags().Changed("host") {
				cfg.Chat.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Chat.Port = port
			}
			if err := cfg.ValidateChat(); err != nil {
				log.Fatal().Err(err).Msg("Invalid configuration")
			}
			if err := runChat(cfg); err != nil {
				log.Fatal().Err(err).Msg("Chat client stopped")
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Listen host")
	cmd.Flags().IntVarP(&port, "port", "p", 8501, "Listen port")
	return cmd
}

func runBackend(cfg *config.Config) error {
	splitter, err := chunker.New(cfg.RAG.Strategy, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}
	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	completer, err := llmservice.NewCompleter(cfg.Completion)
	if err != nil {
		return err
	}

	m := metrics.New()
	service := rag.NewRAG(cfg, splitter, embedder, completer, m)
	router := handlers.NewRouter(handlers.NewHandler(service, m, cfg.Server.MaxUploadBytes))

	log.Info().
		Str("addr", cfg.Server.Addr()).
		Str("completion_model", cfg.Completion.Model).
		Str("embedding_model", cfg.Embedding.Model).
		Msg("Starting backend")
	return serve(cfg.Server.Addr(), router)
}

func runChat(cfg *config.Config) error {
	client := backend.NewClient(cfg.Chat.BackendURL, cfg.Chat.Timeout)
	app := chatui.NewApp(client, chatui.Options{
		MaxSessions:    cfg.Session.MaxSessions,
		SessionTTL:     cfg.Session.TTL,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	router, err := chatui.NewRouter(app)
	if err != nil {
		return err
	}

	log.Info().Str("addr", cfg.Chat.Addr()).Str("backend_url", cfg.Chat.BackendURL).Msg("Starting chat client")
	return serve(cfg.Chat.Addr(), router)
}

// serve runs handler until SIGINT or SIGTERM, then drains in-flight requests.
func serve(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
