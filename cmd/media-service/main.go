package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/screenrec/media-service/internal/media-service/database"
	"github.com/screenrec/media-service/internal/media-service/handler"
	"github.com/screenrec/media-service/internal/media-service/storage"
)

var port = "5000"
var dbFile = database.DefaultFile
var contentDir = "uploads"

func init() {
	p := os.Getenv("PORT")
	if p != "" {
		port = p
	}

	d := os.Getenv("DB_FILE")
	if d != "" {
		dbFile = d
	}

	c := os.Getenv("CONTENT_DIR")
	if c != "" {
		contentDir = c
	}
}

func main() {
	l := log.New().WithFields(log.Fields{
		"port":        port,
		"db_file":     dbFile,
		"content_dir": contentDir,
	})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer l.Println("got interruption signal")

	db, err := database.NewDb(dbFile)
	if err != nil {
		l.WithError(err).Fatal("failed to open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		l.WithError(err).Fatal("failed to get database connection")
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			l.WithError(err).Error("database close returned an err")
		}
	}()

	store, err := storage.NewStorage(contentDir, l)
	if err != nil {
		l.WithError(err).Fatal("failed to prepare content dir")
	}
	repo := database.NewRepository(db)

	go reportOrphans(repo, store, l)

	server := &http.Server{Addr: ":" + port, Handler: handler.NewHandler(repo, store)}

	go func() {
		l.Printf("listening to port %s\n", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Fatal("listen and serve returned err")
		}
	}()
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			l.WithError(err).Error("server shutdown returned an err")
		}
	}()

	<-ctx.Done()
}

// reportOrphans logs rows without blobs and blobs without rows at startup.
// Diagnostic only; nothing is deleted or repaired.
func reportOrphans(repo *database.Repository, store *storage.Storage, l *log.Entry) {
	recordings, err := repo.ListAll()
	if err != nil {
		l.WithError(err).Error("orphan sweep: can't list recordings")
		return
	}

	known := make(map[string]struct{}, len(recordings))
	eg := &errgroup.Group{}
	eg.SetLimit(8)
	for _, rec := range recordings {
		known[rec.Filename] = struct{}{}
		eg.Go(func() error {
			if _, err := store.Stat(rec.Filename); err != nil {
				l.WithFields(log.Fields{
					"id":       rec.ID,
					"filename": rec.Filename,
				}).Warn("recording row has no file on disk")
			}
			return nil
		})
	}
	_ = eg.Wait()

	names, err := store.List()
	if err != nil {
		l.WithError(err).Error("orphan sweep: can't list content dir")
		return
	}
	for _, name := range names {
		if _, ok := known[name]; !ok {
			l.WithField("filename", name).Warn("file on disk has no recording row")
		}
	}
}
