package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/transcriptorhq/transcriptor/internal/cleanup"
	"github.com/transcriptorhq/transcriptor/internal/handlers"
	"github.com/transcriptorhq/transcriptor/internal/jobs"
	"github.com/transcriptorhq/transcriptor/internal/storage"
	"github.com/transcriptorhq/transcriptor/internal/transcription"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	AssemblyAI struct {
		APIKey  string                      `yaml:"api_key"`
		BaseURL string                      `yaml:"base_url"`
		Options transcription.SubmitOptions `yaml:"options"`
	} `yaml:"assemblyai"`

	Polling struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		MaxAttempts     int `yaml:"max_attempts"`
	} `yaml:"polling"`

	Storage struct {
		UploadDir string `yaml:"upload_dir"`
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Logging struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	err = cleanup.EnsureDirs(config.Storage.UploadDir, config.Storage.TempDir, config.Storage.OutputDir)
	if err != nil {
		log.Fatalf("Failed to create working directories: %v", err)
	}

	// Custom logger setup: stdout + in-memory ring + rotating file
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	writers := []io.Writer{os.Stdout, logBuffer}
	if config.Logging.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.Logging.File,
			MaxSize:    config.Logging.MaxSizeMB,
			MaxBackups: config.Logging.MaxBackups,
			MaxAge:     config.Logging.MaxAgeDays,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	// Initialize components
	log.Println("Initializing components...")

	// AssemblyAI client. The env var wins over the config file so keys
	// stay out of checked-in configs. A missing key is fatal here.
	apiKey := config.AssemblyAI.APIKey
	if env := os.Getenv("ASSEMBLYAI_API_KEY"); env != "" {
		apiKey = env
	}
	client, err := transcription.NewClient(apiKey, config.AssemblyAI.BaseURL, config.AssemblyAI.Options)
	if err != nil {
		log.Fatalf("Failed to initialize AssemblyAI client: %v", err)
	}

	// Polling state machine
	poller := transcription.NewPoller(
		client,
		time.Duration(config.Polling.IntervalSeconds)*time.Second,
		config.Polling.MaxAttempts,
	)

	// ffmpeg converter
	converter := transcription.NewConverter(config.Storage.TempDir)

	// Local storage
	localStorage := storage.NewLocalStorage(config.Storage.OutputDir)

	// Google Drive client (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(config.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			config.GoogleDrive.CredentialsFile,
			config.GoogleDrive.TokenFile,
			config.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Transcripts will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	// Database
	db, err := storage.NewMetadataDB(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Job store and runner
	store := jobs.NewStore()
	runner := jobs.NewRunner(store, converter, client, poller, localStorage, driveClient, db)

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		[]string{config.Storage.UploadDir, config.Storage.TempDir},
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(store, config.Storage.UploadDir, config.Limits.MaxFileSizeMB)
	linkHandler := handlers.NewLinkHandler(store, runner, config.Storage.UploadDir)
	transcribeHandler := handlers.NewTranscribeHandler(runner)
	statusHandler := handlers.NewStatusHandler(store)
	downloadHandler := handlers.NewDownloadHandler(store)
	watchHandler := handlers.NewWatchHandler(store)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/upload", uploadHandler.Handle)
	app.Post("/link", linkHandler.Handle)
	app.Post("/transcribe/:id", transcribeHandler.Handle)
	app.Get("/status/:id", statusHandler.Handle)
	app.Get("/download/:id", downloadHandler.Handle)

	// WebSocket route
	app.Get("/ws/jobs/:id", websocket.New(watchHandler.Handle))

	// Get transcript metadata
	app.Get("/transcripts", func(c *fiber.Ctx) error {
		limit := 50 // Default limit
		transcripts, err := db.ListTranscripts(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(transcripts)
	})

	// Get transcript text
	app.Get("/transcripts/:id/text", func(c *fiber.Ctx) error {
		jobID := c.Params("id")

		transcript, err := db.GetTranscript(jobID)
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript not found"})
		}

		localPath, ok := transcript["local_path"].(string)
		if !ok || localPath == "" {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript file path not found"})
		}

		content, err := os.ReadFile(localPath)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to read transcript file"})
		}

		return c.SendString(string(content))
	})

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /upload         - Upload audio file")
	log.Println("   POST /link           - Transcribe from URL")
	log.Println("   POST /transcribe/:id - Start transcription")
	log.Println("   GET  /status/:id     - Job status")
	log.Println("   GET  /download/:id   - Download transcript")
	log.Println("   GET  /ws/jobs/:id    - Live job status over WebSocket")
	log.Println("   GET  /transcripts    - List all transcripts")
	log.Println("   GET  /transcripts/:id/text - Get transcript text")
	log.Println("   GET  /metrics        - Prometheus metrics")
	log.Println("   GET  /logs           - View server logs")
	log.Println("   GET  /health         - Health check")

	// Graceful shutdown: stop accepting requests on SIGINT/SIGTERM
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	// Listen has returned, so no new requests arrive. Drain in-flight jobs
	// on the main goroutine before the process exits.
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Shutdown(drainCtx); err != nil {
		log.Printf("Drain incomplete, in-flight jobs aborted: %v", err)
	}
	log.Println("All jobs drained, shutdown complete")
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, err
	}

	return config, nil
}

// defaultConfig carries the values the YAML may omit.
func defaultConfig() *Config {
	c := &Config{}
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.AssemblyAI.Options = transcription.DefaultSubmitOptions()
	c.Polling.IntervalSeconds = 5
	c.Polling.MaxAttempts = 60
	c.Storage.UploadDir = "uploads"
	c.Storage.TempDir = "temp"
	c.Storage.OutputDir = "outputs"
	c.Storage.Database = "transcripts.db"
	c.Cleanup.IntervalMinutes = 60
	c.Cleanup.MaxAgeHours = 24
	c.Limits.MaxFileSizeMB = 200
	return c
}
