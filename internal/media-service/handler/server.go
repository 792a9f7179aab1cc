package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/screenrec/media-service/internal/media-service/database"
	"github.com/screenrec/media-service/internal/media-service/handler/middleware"
	"github.com/screenrec/media-service/internal/media-service/storage"
)

const (
	urlPatternList   = "GET /api/recordings"
	urlPatternUpload = "POST /api/recordings"
	urlPatternFetch  = "GET /api/recordings/{id}"
	urlPatternDelete = "DELETE /api/recordings/{id}"
	urlPatternHealth = "GET /health"
)

const videoContentType = "video/webm"

type RecordingRepository interface {
	Insert(title, filename string, size int64) (*database.Recording, error)
	ListAll() ([]*database.Recording, error)
	GetByID(id int64) (*database.Recording, error)
	DeleteByID(id int64) (int64, error)
}

type BlobStorage interface {
	Save(name string, file io.Reader) (int64, error)
	Open(name string) (*os.File, os.FileInfo, error)
	Remove(name string) error
}

func NewHandler(repo RecordingRepository, store BlobStorage) http.Handler {
	handler := http.NewServeMux()

	handler.HandleFunc(urlPatternList, listRecordings(repo))
	handler.HandleFunc(urlPatternUpload, uploadRecording(repo, store))
	handler.HandleFunc(urlPatternFetch, fetchRecording(repo, store))
	handler.HandleFunc(urlPatternDelete, deleteRecording(repo, store))
	handler.HandleFunc(urlPatternHealth, health(time.Now()))

	handler.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		writeError(rw, http.StatusNotFound, "Endpoint not found")
	})

	return middleware.AllowCORS(handler)
}

func listRecordings(repo RecordingRepository) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		recordings, err := repo.ListAll()
		if err != nil {
			log.New().WithError(err).Error("can't list recordings")
			writeError(rw, http.StatusInternalServerError, "Failed to fetch recordings")
			return
		}
		writeJSON(rw, http.StatusOK, recordings)
	}
}

func uploadRecording(repo RecordingRepository, store BlobStorage) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		l := log.New().WithField("client", r.RemoteAddr)
		r.Body = http.MaxBytesReader(rw, r.Body, maxUploadSize+formOverhead)

		ud, err := newUploadData(r, l)
		switch {
		case err == nil:
		case errors.Is(err, errTooLarge):
			writeError(rw, http.StatusBadRequest, "File too large. Maximum size is 100MB.")
			return
		case errors.Is(err, errNotVideo):
			writeError(rw, http.StatusBadRequest, "Only video files are allowed")
			return
		default:
			writeError(rw, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer func() {
			_ = ud.file.Close()
		}()

		name := storage.GenerateName(ud.header.Filename)
		l = l.WithField("filename", name)

		// The blob lands on disk first; the row only exists once the bytes do.
		written, err := store.Save(name, ud.file)
		if err != nil {
			writeError(rw, http.StatusInternalServerError, "Failed to save recording")
			return
		}

		title := ud.title
		if title == "" {
			title = name
		}
		size := ud.size
		if size == 0 {
			size = written
		}

		rec, err := repo.Insert(title, name, size)
		if err != nil {
			l.WithError(err).Error("can't save recording metadata")
			if err := store.Remove(name); err != nil {
				l.WithError(err).Error("can't clean up recording file after failed insert")
			}
			writeError(rw, http.StatusInternalServerError, "Failed to save recording metadata")
			return
		}

		l.WithField("id", rec.ID).Info("recording uploaded")
		writeJSON(rw, http.StatusCreated, createdResponse{
			ID:       rec.ID,
			Title:    rec.Title,
			Filename: rec.Filename,
			Size:     rec.Size,
			Message:  "Recording uploaded successfully",
		})
	}
}

func fetchRecording(repo RecordingRepository, store BlobStorage) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue(pathValueID), 10, 64)
		if err != nil {
			writeError(rw, http.StatusBadRequest, "Invalid recording ID")
			return
		}
		l := log.New().WithFields(log.Fields{"client": r.RemoteAddr, "id": id})

		rec, err := repo.GetByID(id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(rw, http.StatusNotFound, "Recording not found")
			return
		}
		if err != nil {
			l.WithError(err).Error("can't get recording from db")
			writeError(rw, http.StatusInternalServerError, "Database error")
			return
		}

		blob, info, err := store.Open(rec.Filename)
		if errors.Is(err, storage.ErrCantFindFile) {
			l.WithField("filename", rec.Filename).Warn("recording row has no file on disk")
			writeError(rw, http.StatusNotFound, "Recording file not found on disk")
			return
		}
		if err != nil {
			writeError(rw, http.StatusInternalServerError, "Failed to read recording")
			return
		}
		defer func() {
			_ = blob.Close()
		}()

		size := info.Size()
		if start, end, ok := parseRange(r.Header.Get("Range"), size); ok {
			if _, err := blob.Seek(start, io.SeekStart); err != nil {
				l.WithError(err).Error("can't seek recording file")
				writeError(rw, http.StatusInternalServerError, "Failed to read recording")
				return
			}
			length := end - start + 1
			rw.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
			rw.Header().Set("Accept-Ranges", "bytes")
			rw.Header().Set("Content-Length", strconv.FormatInt(length, 10))
			rw.Header().Set("Content-Type", videoContentType)
			rw.WriteHeader(http.StatusPartialContent)
			if _, err := io.CopyN(rw, blob, length); err != nil {
				l.WithError(err).Info("recording stream interrupted")
			}
			return
		}

		rw.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		rw.Header().Set("Content-Type", videoContentType)
		rw.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.Title))
		rw.WriteHeader(http.StatusOK)
		if _, err := io.Copy(rw, blob); err != nil {
			l.WithError(err).Info("recording stream interrupted")
		}
	}
}

func deleteRecording(repo RecordingRepository, store BlobStorage) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue(pathValueID), 10, 64)
		if err != nil {
			writeError(rw, http.StatusBadRequest, "Invalid recording ID")
			return
		}
		l := log.New().WithFields(log.Fields{"client": r.RemoteAddr, "id": id})

		rec, err := repo.GetByID(id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(rw, http.StatusNotFound, "Recording not found")
			return
		}
		if err != nil {
			l.WithError(err).Error("can't get recording from db")
			writeError(rw, http.StatusInternalServerError, "Database error")
			return
		}

		// A missing blob must not block the row delete; the row is the
		// authoritative outcome.
		if err := store.Remove(rec.Filename); err != nil {
			l.WithField("filename", rec.Filename).WithError(err).Warn("can't remove recording file, deleting the row anyway")
		}

		affected, err := repo.DeleteByID(id)
		if err != nil {
			l.WithError(err).Error("can't delete recording row")
			writeError(rw, http.StatusInternalServerError, "Failed to delete recording")
			return
		}
		if affected == 0 {
			// Lost a race with a concurrent delete of the same id.
			writeError(rw, http.StatusNotFound, "Recording not found")
			return
		}

		l.Info("recording deleted")
		writeJSON(rw, http.StatusOK, messageResponse{Message: "Recording deleted successfully"})
	}
}

func health(start time.Time) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, healthResponse{
			Status:    "OK",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(start).Seconds(),
		})
	}
}
