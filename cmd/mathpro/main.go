package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/mathpro/internal/handler"
	appI18n "github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/library"
	"github.com/pavelanni/mathpro/internal/llm"
	"github.com/pavelanni/mathpro/internal/model"
	"github.com/pavelanni/mathpro/internal/store"
	"github.com/pavelanni/mathpro/internal/worksheet"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mathpro",
		Short: "Self-grading math worksheets for grades 6 to 9",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db-driver", "sqlite", "Database driver (sqlite, postgres)")
	f.String("db", "mathpro.db", "SQLite path or PostgreSQL connection string")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the worksheet web server",
		RunE:  runServe,
	}
	addStoreFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringSliceP("worksheets", "w", nil, "Library export files to import on startup (repeatable)")
	f.String("llm-provider", "gemini", "AI provider (gemini, openai, mock)")
	f.String("gemini-key", "", "Gemini API key (or set MATHPRO_GEMINI_KEY)")
	f.String("gemini-model", "", "Gemini model name")
	f.String("openai-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("openai-key", "ollama", "API key for the OpenAI-compatible endpoint")
	f.String("openai-model", "", "Model name for the OpenAI-compatible endpoint")
	f.Bool("skip-llm-check", false, "Start without checking the AI endpoint")
	f.StringP("lang", "l", "vi", "Default UI language (vi, en)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /toan)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringSlice("grades", []string{"6", "7", "8", "9"}, "Grades offered in the library")
	f.Duration("generate-timeout", 90*time.Second, "Time limit for generating one worksheet")
	f.Duration("chat-timeout", 60*time.Second, "Time limit for one tutor answer")
	f.Duration("library-timeout", library.DefaultTimeout, "Time limit for one library operation")
	f.Duration("view-ttl", worksheet.DefaultViewTTL, "How long an idle worksheet view is kept")
	f.Int64("max-upload", 20<<20, "Maximum upload size in bytes")
	f.StringSlice("cors-origins", nil, "Origins allowed to call the JSON API")
	f.Duration("session-ttl", store.DefaultSessionTTL, "Lifetime of a login session")
	f.String("admin-password", "", "Initial admin password (or set MATHPRO_ADMIN_PASSWORD)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import worksheets from library export files",
		RunE:  runImport,
	}
	addStoreFlags(cmd)
	f := cmd.Flags()
	f.StringSliceP("file", "f", nil, "Library export file (repeatable)")
	f.Bool("force", false, "Import files even if they were imported before")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the worksheet library as JSON",
		RunE:  runExport,
	}
	addStoreFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("MATHPRO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("mathpro")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mathpro")
	v.AddConfigPath("/etc/mathpro")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	driver, err := store.ParseDriver(v.GetString("db-driver"))
	if err != nil {
		return nil, err
	}
	db, err := store.New(ctx, driver, v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	db.SetSessionTTL(v.GetDuration("session-ttl"))
	if err := seedAdmin(ctx, db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := loadWorksheets(ctx, db, v.GetStringSlice("worksheets"), false); err != nil {
		return fmt.Errorf("load worksheets: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	provider, err := llm.NewProvider(ctx, llm.Config{
		Provider: v.GetString("llm-provider"),
		Gemini: llm.GeminiConfig{
			APIKey: v.GetString("gemini-key"),
			Model:  v.GetString("gemini-model"),
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:  v.GetString("openai-key"),
			Model:   v.GetString("openai-model"),
			BaseURL: v.GetString("openai-url"),
		},
	})
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	if !v.GetBool("skip-llm-check") {
		pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := provider.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("AI health check: %w", err)
		}
		slog.Info("AI endpoint OK", "provider", v.GetString("llm-provider"), "model", provider.ModelID())
	}
	author, err := llm.NewAuthor(provider)
	if err != nil {
		return fmt.Errorf("create worksheet author: %w", err)
	}

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.AppConfig{
		BasePath:         basePath,
		SecureCookies:    v.GetBool("secure-cookies"),
		Grades:           v.GetStringSlice("grades"),
		MaxUploadBytes:   v.GetInt64("max-upload"),
		GenerateTimeout:  v.GetDuration("generate-timeout"),
		ChatTimeout:      v.GetDuration("chat-timeout"),
		CORSAllowOrigins: v.GetStringSlice("cors-origins"),
	}

	lib := library.New(db, v.GetDuration("library-timeout"))
	driver := worksheet.NewDriver(
		worksheet.NewGenerator(author, cfg.GenerateTimeout),
		lib,
		v.GetDuration("view-ttl"),
	)
	h, err := handler.New(db, lib, driver, author, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	go cleanupSessions(ctx, db, time.Hour)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"db_driver", db.Driver(),
		"provider", v.GetString("llm-provider"),
		"model", provider.ModelID(),
		"lang", lang,
		"grades", cfg.Grades,
		"base_path", basePath,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func cleanupSessions(ctx context.Context, db *store.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := db.CleanupExpiredSessions(ctx); err != nil {
				slog.Warn("failed to clean up auth sessions", "error", err)
			}
		}
	}
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	return loadWorksheets(ctx, db, v.GetStringSlice("file"), v.GetBool("force"))
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	export, err := db.ExportLibrary(ctx)
	if err != nil {
		return fmt.Errorf("export library: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported library", "count", export.Count, "output", outPath)
	return nil
}

// loadWorksheets imports library export files. A file is imported once; a
// changed file is skipped unless force is set.
func loadWorksheets(ctx context.Context, db *store.Store, paths []string, force bool) error {
	var createdBy int64
	if admin, err := db.GetUserByUsername(ctx, "admin"); err == nil && admin != nil {
		createdBy = admin.ID
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(ctx, path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if !force {
			if storedHash == hash {
				slog.Info("worksheet file unchanged, skipping", "path", path)
				continue
			}
			if storedHash != "" {
				slog.Warn("worksheet file changed since last import, skipping to avoid duplicates", "path", path)
				continue
			}
		}

		items, err := parseImport(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		n, err := db.ImportWorksheets(ctx, items, createdBy)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported worksheets", "path", path, "count", n, "skipped", len(items)-n)
	}
	return nil
}

// parseImport accepts a library export document or a bare array of worksheets.
func parseImport(data []byte) ([]model.WorksheetImport, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []model.WorksheetImport
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var export model.LibraryExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, err
	}
	return export.Worksheets, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(ctx context.Context, db *store.Store, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or MATHPRO_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Quản trị viên",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
