// Command primerd serves primes over HTTP: a thin driver around
// internal/sieve and internal/prioqueue, wired the way the teacher wires
// its own HTTP surface (gin + zap request logging + CORS + secure
// headers).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/edirooss/primer/internal/config"
	"github.com/edirooss/primer/internal/prioqueue"
	"github.com/edirooss/primer/internal/prioqueue/redisstore"
	"github.com/edirooss/primer/internal/sieve"
	"github.com/edirooss/primer/pkg/jsonx"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// crunchRequest is the POST /api/primes body. Thresholds are optional
// overrides of the server's configured defaults, for a caller that wants a
// one-off job tiered differently than the rest of the fleet.
type crunchRequest struct {
	Count    int  `json:"count"`
	HighTier *int `json:"high_tier,omitempty"`
	LowTier  *int `json:"low_tier,omitempty"`
}

// zapLogger logs one line per request, copied in spirit from the
// teacher's ZapLogger gin middleware.
func zapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	log := zap.Must(logConfig.Build())
	defer log.Sync()
	log = log.Named("primerd")

	cfg := config.FromEnv()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.Use(gin.Recovery())

	if cfg.Dev {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET"},
			AllowHeaders:     []string{"Content-Type"},
			ExposeHeaders:    []string{"X-Total-Count"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers on every response. The teacher's go.mod carries
	// this dependency but never wires it into a route; wired here.
	r.Use(secure.New(secure.Config{
		IsDevelopment:        cfg.Dev,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
	}))

	r.Use(zapLogger(log))

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.GET("/api/primes", func(c *gin.Context) {
		count, err := parseCount(c.Query("count"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		primes, err := crunchN(c.Request.Context(), log, cfg, count)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}

		c.Header("X-Total-Count", strconv.Itoa(len(primes)))
		c.JSON(http.StatusOK, primes)
	})

	r.POST("/api/primes", func(c *gin.Context) {
		var req crunchRequest
		if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		if req.Count < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "count must be a non-negative integer"})
			return
		}

		jobCfg := cfg
		if req.HighTier != nil {
			jobCfg.High = *req.HighTier
		}
		if req.LowTier != nil {
			jobCfg.Low = *req.LowTier
		}

		primes, err := crunchN(c.Request.Context(), log, jobCfg, req.Count)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}

		c.Header("X-Total-Count", strconv.Itoa(len(primes)))
		c.JSON(http.StatusOK, primes)
	})

	r.GET("/api/primes/stream", func(c *gin.Context) {
		count, err := parseCount(c.Query("count"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		c.Status(http.StatusOK)
		c.Header("Content-Type", "application/x-ndjson")
		flusher, canFlush := c.Writer.(http.Flusher)

		err = streamN(c.Request.Context(), log, cfg, count, func(index int, prime int64) {
			fmt.Fprintf(c.Writer, `{"index":%d,"prime":%d}`+"\n", index, prime)
			if canFlush {
				flusher.Flush()
			}
		})
		if err != nil {
			log.Error("stream: crunch failed mid-stream", zap.Error(err))
		}
	})

	httpserver := &http.Server{
		Addr:           "127.0.0.1:8081",
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0, // streaming endpoint can run long; no global write deadline
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 15,
		ErrorLog:       zap.NewStdLog(log.Named("http").WithOptions(zap.AddCallerSkip(1))),
	}

	log.Info("running HTTP server on 127.0.0.1:8081")
	if err := httpserver.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}

func parseCount(raw string) (int, error) {
	if raw == "" {
		return 0, errors.New("missing required query parameter: count")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q: must be a non-negative integer", raw)
	}
	return n, nil
}

// crunchN runs a fresh Sieve over a fresh Redis-backed TieredPQ until
// count primes have been emitted, and returns them.
func crunchN(ctx context.Context, log *zap.Logger, cfg config.Config, count int) ([]int64, error) {
	primes := make([]int64, 0, count)
	err := streamN(ctx, log, cfg, count, func(_ int, prime int64) {
		primes = append(primes, prime)
	})
	return primes, err
}

func streamN(ctx context.Context, log *zap.Logger, cfg config.Config, count int, onPrime sieve.OnPrime) error {
	store, err := redisstore.New(cfg.RedisAddr, cfg.RedisDB, log)
	if err != nil {
		return fmt.Errorf("open prio store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("crunch: failed to tear down prio store namespace", zap.Error(err))
		}
	}()

	queue, err := prioqueue.New(ctx, store, prioqueue.WithThresholds(cfg.High, cfg.Low), prioqueue.WithLogger(log))
	if err != nil {
		return fmt.Errorf("construct tiered queue: %w", err)
	}

	emitted := 0
	s := sieve.New(queue)
	return s.Crunch(ctx, func() bool { return emitted < count }, func(index int, prime int64) {
		emitted++
		onPrime(index, prime)
	})
}
