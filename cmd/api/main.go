package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sevadarpan.org/internal/audit"
	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/httpapi"
	"sevadarpan.org/internal/obs"
	"sevadarpan.org/internal/perf"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Connect to PostgreSQL when a DSN is configured. Without one the service
	// runs fully in memory with the demo fixture accounts, which is the local
	// development mode.
	var db *sql.DB
	if dsn := os.Getenv("SEVADARPAN_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		users     auth.UserStore
		perfStore perf.Store
		sink      audit.Sink
		auditLog  audit.Lister
	)
	if db != nil {
		users = auth.NewPGStore(db)
		perfStore = perf.NewPGStore(db)
		pgSink := audit.NewPGSink(db)
		sink = audit.MultiSink{audit.LogSink{}, pgSink}
		auditLog = pgSink
	} else {
		users = auth.NewInMemory()
		perfStore = perf.NewInMemory()
		memSink := audit.NewMemorySink()
		sink = audit.MultiSink{audit.LogSink{}, memSink}
		auditLog = memSink
		if err := auth.SeedDemo(context.Background(), users); err != nil {
			log.Fatalf("seed demo accounts: %v", err)
		}
		log.Println("No SEVADARPAN_PG_DSN set, running in-memory with demo accounts")
	}

	perfSvc, err := perf.NewService(perfStore)
	if err != nil {
		log.Fatalf("perf service: %v", err)
	}
	recorder := audit.NewRecorder(sink)

	api := httpapi.New(httpapi.Config{
		Users:    users,
		Owners:   perfStore,
		Perf:     perfSvc,
		Recorder: recorder,
		AuditLog: auditLog,
		Ready:    httpapi.ReadyProbe{DB: db},
		Version:  version,
	})

	addr := os.Getenv("SEVADARPAN_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 2)

	var grpcSrv interface{ GracefulStop() }
	if grpcAddr := os.Getenv("SEVADARPAN_GRPC_ADDR"); grpcAddr != "" {
		s, err := httpapi.StartGRPC(grpcAddr, errc)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = s
		log.Printf("gRPC health on %s", grpcAddr)
	}

	log.Printf("Starting sevadarpan-api %s on %s", version, addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("Shutting down...")
	case err := <-errc:
		log.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	recorder.Flush()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
