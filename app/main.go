package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/regpipe/regpipe/app/analyzer"
	"github.com/regpipe/regpipe/app/api"
	"github.com/regpipe/regpipe/app/cfg"
	"github.com/regpipe/regpipe/app/config"
	"github.com/regpipe/regpipe/app/convert"
	"github.com/regpipe/regpipe/app/crawler"
	"github.com/regpipe/regpipe/app/database"
	"github.com/regpipe/regpipe/app/downloader"
	"github.com/regpipe/regpipe/app/pipeline"
	"github.com/regpipe/regpipe/app/tasks"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting RegPipe server...", "version", appCfg.Version)

	// Database connection and migrations
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	// Repositories
	regulationRepo := database.NewRegulationRepository(db)
	categoryRepo := database.NewCategoryRepository(db)
	logRepo := database.NewProcessingLogRepository(db)
	runRepo := database.NewRunRepository(db)

	// Schedule configuration
	scheduleCache := config.NewScheduleCache(appCfg.ScheduleFile)
	if err := scheduleCache.Run(); err != nil {
		log.Fatal("Failed to load schedule configuration:", err)
	}
	slog.Info("Schedule configuration loaded", "schedules", len(scheduleCache.GetSchedules()))

	// Headless browser, shared by the dynamic-page collectors and the
	// render-to-PDF retrieval path
	browser, err := crawler.NewBrowser(appCfg.Headless)
	if err != nil {
		log.Fatal("Failed to launch browser:", err)
	}
	defer browser.Close()

	httpClient := &http.Client{Timeout: 120 * time.Second}

	// Collectors. SAMA is a combined crawl: the circulars listing plus the
	// laws-and-implementing-regulations book category.
	collectors := map[string]crawler.Collector{
		string(crawler.RegulatorSBP):  crawler.NewSBPCollector("", httpClient, appCfg.UserAgent),
		string(crawler.RegulatorSECP): crawler.NewSECPCollector(browser, ""),
		string(crawler.RegulatorSAMA): crawler.NewMultiCollector(
			crawler.NewSAMACollector(browser, "", 0),
			crawler.NewSAMALawsCollector(browser, "", 0)),
	}

	// Press-release feeds supplement the scraped sources for their regulator
	rssByRegulator := make(map[string][]crawler.Collector)
	for _, feed := range scheduleCache.GetRSSFeeds() {
		regulator := crawler.Regulator(feed.Regulator)
		if _, ok := collectors[feed.Regulator]; !ok {
			slog.Warn("Skipping feed for unknown regulator", "name", feed.Name, "regulator", feed.Regulator)
			continue
		}
		rssByRegulator[feed.Regulator] = append(rssByRegulator[feed.Regulator],
			crawler.NewRSSCollector(regulator, feed.Name, feed.Category, feed.URL, httpClient, appCfg.UserAgent))
		slog.Info("Press-release feed configured", "name", feed.Name, "url", feed.URL)
	}
	for regulator, supplemental := range rssByRegulator {
		collectors[regulator] = crawler.NewMultiCollector(collectors[regulator], supplemental...)
	}

	// Pipeline services
	retriever, err := downloader.NewDownloader(appCfg.DownloadDir, httpClient, browser, appCfg.UserAgent)
	if err != nil {
		log.Fatal("Failed to initialize downloader:", err)
	}

	pdfcoClient := convert.NewClient("", appCfg.PDFCoAPIKey, httpClient)
	converter := convert.NewService(pdfcoClient)

	var docAnalyzer pipeline.Analyzer
	if appCfg.GenAIAPIKey != "" {
		a, err := analyzer.NewAnalyzer(context.Background(), appCfg.GenAIAPIKey, appCfg.GenAIModel)
		if err != nil {
			log.Fatal("Failed to initialize analyzer:", err)
		}
		docAnalyzer = a
		slog.Info("Compliance analysis enabled", "model", appCfg.GenAIModel)
	} else {
		slog.Info("Compliance analysis disabled (GENAI_API_KEY not set)")
	}

	audit := pipeline.NewAuditLog(logRepo)
	orchestrator := pipeline.NewOrchestrator(regulationRepo, categoryRepo, audit,
		retriever, converter, docAnalyzer)

	// Scheduler
	scheduler := tasks.NewScheduler(scheduleCache, collectors, orchestrator, runRepo, httpClient)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "execution_mode", appCfg.ExecutionMode)

	// HTTP server
	apiHandler := api.NewHandler(regulationRepo, logRepo, runRepo, scheduleCache, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("RegPipe server started successfully")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler and browser are stopped via defer
	slog.Info("RegPipe server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
