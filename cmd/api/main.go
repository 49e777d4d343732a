package main

import (
    "context"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    log "github.com/sirupsen/logrus"

    "liftsched/internal/api"
    "liftsched/internal/buildinfo"
)

func main() {
    log.SetFormatter(&log.JSONFormatter{})
    if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
        log.SetLevel(lvl)
    }

    srvDeps, err := api.NewServer()
    if err != nil {
        log.WithError(err).Fatal("failed to init server")
    }

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    srv := &http.Server{
        Addr:              addr,
        Handler:           api.LogMiddleware(log.StandardLogger(), srvDeps.Routes()),
        ReadHeaderTimeout: 5 * time.Second,
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()
    go func() {
        <-ctx.Done()
        shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
        defer cancel()
        _ = srv.Shutdown(shutdown)
    }()

    log.WithFields(log.Fields{"addr": addr, "version": buildinfo.Version}).Info("API listening")
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.WithError(err).Fatal("server error")
    }
    // let detached dispatch runs store their results
    srvDeps.Wait()
}
