package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/the80percentbill/pledge-api/src/api/config"
	"github.com/the80percentbill/pledge-api/src/api/data"
	"github.com/the80percentbill/pledge-api/src/api/geocode"
	"github.com/the80percentbill/pledge-api/src/api/mailer"
	"github.com/the80percentbill/pledge-api/src/api/pledge"
	"github.com/the80percentbill/pledge-api/src/api/store"
	"github.com/the80percentbill/pledge-api/src/api/webserver"
)

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	rdb := data.MustRedis(cfg.RedisURL)

	ctx := context.Background()

	var table store.Table
	if cfg.SheetID != "" {
		sheet, err := store.NewSheetsTable(ctx, cfg.SheetCredentials, cfg.SheetID, cfg.SheetName)
		if err != nil {
			log.Fatalf("sheets: %v", err)
		}
		table = sheet
		log.Printf("Signature store: sheet %s/%s", cfg.SheetID, cfg.SheetName)
	} else {
		table = store.NewCSVTable(cfg.CSVPath)
		log.Printf("Signature store: csv %s", cfg.CSVPath)
	}

	st := store.New(table, store.NewMySQLBackup(db), cfg.MinExpectedRows)

	geo := geocode.NewClient(cfg.GeocodioAPIKey, cfg.UserAgent)
	sender := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	sessions := pledge.NewRedisSessions(rdb, cfg.SessionTTL)
	wf := pledge.NewWorkflow(geo, sender, st, sessions)

	router := webserver.New(cfg, wf, st)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Pledge API listening on port %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutCtx)
}
