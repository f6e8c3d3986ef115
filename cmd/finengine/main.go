package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/cloud-ru/mcp-household-finance-go/internal/cache"
	"github.com/cloud-ru/mcp-household-finance-go/internal/config"
	"github.com/cloud-ru/mcp-household-finance-go/internal/goalstore"
	"github.com/cloud-ru/mcp-household-finance-go/internal/tools"
	"github.com/cloud-ru/mcp-household-finance-go/internal/tracing"
)

// request описывает один вызов инструмента
type request struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type response struct {
	Tool   string      `json:"tool"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	// stdout занят ответом
	logger.SetOutput(os.Stderr)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	os.Exit(run(cfg, logger, os.Args[1:], os.Stdin, os.Stdout))
}

func run(cfg *config.Config, logger *logrus.Logger, args []string, stdin io.Reader, stdout io.Writer) int {
	ctx := context.Background()

	shutdown, err := tracing.InitTracing(cfg.OTELServiceName, cfg.OTELEndpoint, logger)
	if err != nil {
		logger.Errorf("Failed to init tracing: %v", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warnf("tracing shutdown: %v", err)
		}
	}()

	deps := tools.Deps{Config: cfg, Tracer: tracing.Tracer, Log: logger}

	if cfg.DBDSN != "" {
		db, err := goalstore.Open(cfg.DBDriver, cfg.DBDSN, logger)
		if err != nil {
			logger.Errorf("Failed to connect to goal store: %v", err)
			return 1
		}
		if err := goalstore.Migrate(db); err != nil {
			logger.Errorf("Failed to migrate goal store: %v", err)
			return 1
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		deps.Store = goalstore.New(db, logger)
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			// кэш необязателен: база дохода просто пересчитывается
			logger.WithError(err).Warn("Redis unavailable, income basis cache disabled")
		} else {
			defer rdb.Close()
			deps.Cache = cache.NewIncomeBasisCache(rdb, cfg.IncomeCacheTTL)
		}
	}

	registry := tools.NewRegistry(deps)

	in := stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			logger.Errorf("Failed to open request: %v", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	var req request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return writeResponse(stdout, logger, response{Error: fmt.Sprintf("malformed request: %v", err)}, 2)
	}
	if req.Tool == "" {
		return writeResponse(stdout, logger, response{Error: fmt.Sprintf("tool is required, available: %v", registry.Names())}, 2)
	}

	res, err := registry.Call(ctx, req.Tool, req.Params)
	if err != nil {
		return writeResponse(stdout, logger, response{Tool: req.Tool, Error: err.Error()}, 1)
	}
	return writeResponse(stdout, logger, response{Tool: req.Tool, Result: res}, 0)
}

func writeResponse(w io.Writer, logger logrus.FieldLogger, resp response, code int) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		logger.Errorf("Failed to write response: %v", err)
		return 1
	}
	return code
}
