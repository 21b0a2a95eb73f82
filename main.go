package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"

	"houseprice/db"
	qhttp "houseprice/http"
	"houseprice/ml"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Model struct {
		Dir       string  `yaml:"dir"`
		Samples   int     `yaml:"samples"`
		Seed      int64   `yaml:"seed"`
		TestRatio float64 `yaml:"test_ratio"`
	} `yaml:"model"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(config)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if config.Database.Path != "" {
		if err := db.InitDB(config.Database.Path); err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("database initialized", zap.String("path", config.Database.Path))
	}

	// load the artifact pair, or train and persist a fresh one
	store := &ml.Store{Dir: config.Model.Dir}
	trainCfg := ml.TrainConfig{
		Samples:   config.Model.Samples,
		Seed:      config.Model.Seed,
		TestRatio: config.Model.TestRatio,
	}
	pipeline, result, trained, err := store.LoadOrTrain(trainCfg, logger.Named("store"))
	if err != nil {
		logger.Fatal("failed to prepare model", zap.Error(err))
	}
	if trained && db.Enabled() {
		run := db.TrainingRun{
			Samples:   result.Samples,
			MSE:       result.MSE,
			R2:        result.R2,
			TrainedAt: result.TrainedAt,
		}
		if err := db.SaveTrainingRun(run); err != nil {
			logger.Warn("failed to record training run", zap.Error(err))
		}
	}

	var currentPipeline atomic.Pointer[ml.Pipeline]
	currentPipeline.Store(pipeline)
	var currentResult atomic.Pointer[ml.TrainingResult]
	if result != nil {
		currentResult.Store(result)
	}

	// swap in fresh artifacts when an out-of-band train replaces them
	watcher, err := ml.NewWatcher(store, &currentPipeline, &currentResult, logger.Named("watcher"))
	if err != nil {
		logger.Fatal("failed to watch artifacts", zap.Error(err))
	}
	watcher.Start()

	feed := qhttp.NewFeedHub(logger.Named("feed"))
	go feed.Run()

	handlers, err := qhttp.NewHandlers(&currentPipeline, &currentResult, feed, logger.Named("http"))
	if err != nil {
		logger.Fatal("failed to build handlers", zap.Error(err))
	}

	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds != 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) != 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverConfig, handlers, logger.Named("http"))
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	watcher.Stop()
	feed.Stop()
	logger.Info("exiting")
}

// loadConfig reads the yaml config; a missing file yields defaults so
// the server runs without one.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}
	if config.Model.Dir == "" {
		config.Model.Dir = "artifacts"
	}
	return config, nil
}

func defaultConfig() *Config {
	config := &Config{}
	config.Http.Port = 8080
	config.Model.Dir = "artifacts"
	config.Log.Level = "info"
	return config
}

// buildLogger tees console output with an optional rotating file sink.
func buildLogger(config *Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if config.Log.Level != "" {
		if err := level.Set(config.Log.Level); err != nil {
			return nil, err
		}
	}

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), level),
	}

	if config.Log.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   config.Log.File,
			MaxSize:    config.Log.MaxSizeMB,
			MaxBackups: config.Log.MaxBackups,
		}
		jsonEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotating), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
