package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"parley/internal/auth"
	"parley/internal/config"
	"parley/internal/handlers"
	"parley/internal/middleware"
	"parley/internal/store/sqlstore"
	"parley/internal/ws"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	st, err := sqlstore.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("opening store")
	}
	defer st.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	hub := ws.NewHub(logger.With().Str("component", "hub").Logger())
	subs := ws.NewSubscriptions(hub, st)
	pipeline := ws.NewPipeline(st, hub, logger.With().Str("component", "pipeline").Logger())
	wsOpts := ws.Options{
		SendBuffer:   cfg.SendBufferSize,
		MessageRate:  cfg.MessageRate,
		MessageBurst: cfg.MessageBurst,
	}

	authHandler := &handlers.AuthHandler{Store: st, Tokens: tokens, Log: logger}
	convHandler := &handlers.ConversationHandler{Store: st, Pipeline: pipeline, Log: logger}
	groupHandler := &handlers.GroupHandler{Store: st, Pipeline: pipeline, Log: logger}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(tokens))

	api.HandleFunc("/conversations", convHandler.List).Methods("GET")
	api.HandleFunc("/conversations", convHandler.Create).Methods("POST")
	api.HandleFunc("/conversations/one-to-one/{userId}", convHandler.OneToOne).Methods("GET")
	api.HandleFunc("/conversations/{id}", convHandler.Get).Methods("GET")
	api.HandleFunc("/conversations/{id}", convHandler.Update).Methods("PUT")
	api.HandleFunc("/conversations/{id}", convHandler.Delete).Methods("DELETE")
	api.HandleFunc("/conversations/{id}/messages", convHandler.SendMessage).Methods("POST")

	api.HandleFunc("/groups", groupHandler.List).Methods("GET")
	api.HandleFunc("/groups", groupHandler.Create).Methods("POST")
	api.HandleFunc("/groups/{id}", groupHandler.Get).Methods("GET")
	api.HandleFunc("/groups/{id}", groupHandler.Update).Methods("PUT")
	api.HandleFunc("/groups/{id}", groupHandler.Delete).Methods("DELETE")
	api.HandleFunc("/groups/{id}/users", groupHandler.AddMember).Methods("POST")
	api.HandleFunc("/groups/{id}/users/{userId}", groupHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/groups/{id}/messages", groupHandler.SendMessage).Methods("POST")

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, subs, pipeline, tokens, wsOpts, w, r)
	})

	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).Msg("request")
		})
	}
}
