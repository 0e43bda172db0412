package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/handler"
	"github.com/xxxsen/docqa/internal/job"
	"github.com/xxxsen/docqa/internal/line"
	"github.com/xxxsen/docqa/internal/middleware"
	"github.com/xxxsen/docqa/internal/pkg/jwt"
	"github.com/xxxsen/docqa/internal/schedule"
	"github.com/xxxsen/docqa/internal/service"
)

const cacheCleanupSpec = "30 4 * * *"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "docqa",
		Short:         "document question answering over LINE",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")

	load := func() (*config.Config, error) {
		if configPath == "" {
			return nil, fmt.Errorf("--config is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(
			cfg.LogConfig.File,
			cfg.LogConfig.Level,
			int(cfg.LogConfig.FileCount),
			int(cfg.LogConfig.FileSize),
			int(cfg.LogConfig.KeepDays),
			cfg.LogConfig.Console,
		)
		logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
		return cfg, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "rebuild the vector store from the document source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateIngest(); err != nil {
				return err
			}
			return runIngest(cmd.Context(), cfg)
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "answer one question from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateIngest(); err != nil {
				return err
			}
			return runAsk(cmd.Context(), cfg, args[0])
		},
	}

	var subject string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint an admin api token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return fmt.Errorf("admin.jwt_secret or ADMIN_JWT_SECRET is required")
			}
			token, err := jwt.GenerateToken(subject, []byte(cfg.Admin.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")

	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd, tokenCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func runIngest(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()
	report, runErr := a.ingest.Run(ctx)
	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	return runErr
}

func runAsk(ctx context.Context, cfg *config.Config, question string) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()
	ans, err := a.answer.Answer(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println(ans.Text)
	for _, src := range ans.Sources {
		fmt.Println("- " + src)
	}
	return nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logutil.GetLogger(ctx)

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	messenger := line.NewClient(cfg.Line.AccessToken,
		line.WithBaseURL(cfg.Line.APIBaseURL),
		line.WithTimeout(time.Duration(cfg.Line.Timeout)*time.Second),
	)
	chat := service.NewChatService(a.answer, messenger, service.ChatConfig{
		ChannelSecret:   cfg.Line.ChannelSecret,
		TriggerKeywords: cfg.Line.TriggerKeywords,
		HelpMessage:     cfg.Line.HelpMessage,
		ApologyMessage:  cfg.Line.ApologyMessage,
	})

	scheduler := schedule.NewCronScheduler()
	var jobs []string
	if cfg.Ingest.Cron != "" {
		ingestJob := job.NewIngestJob(a.ingest)
		if err := scheduler.AddJob(ingestJob, cfg.Ingest.Cron); err != nil {
			return err
		}
		jobs = append(jobs, ingestJob.Name())
	}
	if a.cacheRepo != nil && cfg.AI.EmbeddingCache {
		cleanupJob := job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.AI.EmbeddingCacheMaxAgeDays)
		if err := scheduler.AddJob(cleanupJob, cacheCleanupSpec); err != nil {
			return err
		}
		jobs = append(jobs, cleanupJob.Name())
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	for _, name := range jobs {
		if next, ok := scheduler.Next(name); ok {
			log.Info("next scheduled run", zap.String("job", name), zap.Time("at", next))
		}
	}

	deps := handler.RouterDeps{
		Webhook: handler.NewWebhookHandler(chat),
		Health:  handler.NewHealthHandler(a.store),
	}
	if cfg.Admin.JWTSecret != "" {
		deps.Admin = handler.NewAdminHandler(a.ingest, a.answer, chat)
		deps.JWTSecret = []byte(cfg.Admin.JWTSecret)
	} else {
		log.Info("admin api disabled, no jwt secret configured")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	log.Info("http server listening", zap.String("addr", addr), zap.Bool("admin", deps.Admin != nil))

	go func() {
		if err := engine.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server stopping...")
	return nil
}
