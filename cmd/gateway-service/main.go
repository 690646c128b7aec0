// cmd/gateway-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnalchemy/internal/auth"
	"learnalchemy/internal/graphql"
	"learnalchemy/internal/oauth"
	"learnalchemy/internal/queries"
	"learnalchemy/internal/web"
	"learnalchemy/pkg/config"
	"learnalchemy/pkg/db"
	"learnalchemy/pkg/logger"
	"learnalchemy/pkg/sessions"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, "gateway-service")

	pool := db.MustConnect(cfg, log)

	var store sessions.Store
	if pool != nil {
		if err := sessions.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
		store = sessions.NewPostgresStore(pool, log)
	} else {
		store = sessions.NewMemoryStore(log)
	}

	var states web.StateStore
	if rdb := db.MustRedis(cfg, log); rdb != nil {
		states = web.NewRedisStateStore(rdb, cfg.StateTTL)
	} else {
		states = web.NewMemoryStateStore(cfg.StateTTL)
	}

	reg, err := queries.Load()
	if err != nil {
		log.Fatalw("query catalog", "err", err)
	}

	exchanger := oauth.NewClient(cfg, log)
	mgr := auth.NewManager(store, exchanger, log)
	gw := graphql.NewClient(cfg, mgr, log)
	app := web.New(log, cfg, mgr, gw, reg, states)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: app.Handler()}
	go func() {
		log.Infow("gateway-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("gateway-service stopped")
}
