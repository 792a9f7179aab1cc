package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	fieldNameRecording = "recording"
	fieldNameTitle     = "title"
	fieldNameSize      = "size"

	pathValueID = "id"
)

// maxUploadSize caps a single recording blob at 100 MiB.
const maxUploadSize = 100 << 20

// formOverhead is body headroom for the multipart framing and text fields.
const formOverhead = 1 << 20

var (
	errCantParseForm = errors.New("can't parse request form")
	errNoFile        = errors.New("file has not been provided")
	errNotVideo      = errors.New("file is not a video")
	errTooLarge      = errors.New("file exceeds the upload size limit")
)

type uploadData struct {
	title string
	// size is the client-declared byte count; 0 means not supplied and the
	// received count wins.
	size   int64
	file   multipart.File
	header *multipart.FileHeader
}

func newUploadData(r *http.Request, logger *log.Entry) (*uploadData, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errTooLarge
		}
		logger.WithError(err).Error(errCantParseForm)
		return nil, errCantParseForm
	}

	f, fh, err := r.FormFile(fieldNameRecording)
	if err != nil {
		logger.WithError(err).Error(errNoFile)
		return nil, errNoFile
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "video/") {
		_ = f.Close()
		return nil, errNotVideo
	}
	if fh.Size > maxUploadSize {
		_ = f.Close()
		return nil, errTooLarge
	}

	ud := &uploadData{
		title:  r.FormValue(fieldNameTitle),
		file:   f,
		header: fh,
	}
	if size, err := strconv.ParseInt(r.FormValue(fieldNameSize), 10, 64); err == nil {
		ud.size = size
	}
	return ud, nil
}

// parseRange reads a bytes=<start>-[<end>] header the way video elements send
// it. A missing end means "to the last byte"; an end past the blob is clipped.
// start is trusted as sent, matching the permissive contract the capture
// client was built against.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	if !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false
	}
	parts := strings.SplitN(strings.TrimPrefix(header, "bytes="), "-", 2)
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	end = size - 1
	if len(parts) == 2 && parts[1] != "" {
		if e, err := strconv.ParseInt(parts[1], 10, 64); err == nil && e < end {
			end = e
		}
	}
	return start, end, true
}
