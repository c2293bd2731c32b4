package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/intake/internal/intake"
	"github.com/dharsanguruparan/intake/internal/model"
	"github.com/dharsanguruparan/intake/internal/queue"
)

const uploadField = "file"

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		s.rejectUpload(w, r, intake.Reject(intake.ReasonMissingFile, ""))
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		s.rejectUpload(w, r, err)
		return
	}
	defer part.Close()

	file, err := s.policy.CheckUpload(part.FileName())
	if err != nil {
		s.rejectUpload(w, r, err)
		return
	}
	file.StoredPath = filepath.Join(s.cfg.PublicDir, file.OriginalName)
	tmp, size, err := stage(part, s.cfg.PublicDir)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.rejectUpload(w, r, intake.Reject(intake.ReasonTooLarge, file.OriginalName))
			return
		}
		log.Error("store upload", zap.String("file", file.OriginalName), zap.Error(err))
		respondText(w, http.StatusInternalServerError, "Gagal menyimpan file!")
		return
	}
	if err := noMoreFiles(mr); err != nil {
		os.Remove(tmp)
		s.rejectUpload(w, r, err)
		return
	}
	if err := os.Rename(tmp, file.StoredPath); err != nil {
		os.Remove(tmp)
		log.Error("store upload", zap.String("file", file.OriginalName), zap.Error(err))
		respondText(w, http.StatusInternalServerError, "Gagal menyimpan file!")
		return
	}
	file.Size = size
	file.UploadedAt = s.now().UTC()
	log.Info("upload stored", zap.String("file", file.OriginalName), zap.Int64("bytes", size))

	s.archive(r.Context(), file)
	respondText(w, http.StatusOK, "Upload sukses! Akses di: "+file.PublicPath())
}

// nextFilePart returns the first file part of the form. Plain form fields are
// skipped; a file under any field other than "file" is refused.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, intake.Reject(intake.ReasonMissingFile, "")
		}
		if err != nil {
			return nil, partError(err)
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}
		if part.FormName() != uploadField {
			name := part.FormName()
			part.Close()
			return nil, intake.Reject(intake.ReasonUnexpectedField, name)
		}
		return part, nil
	}
}

// noMoreFiles drains the rest of the form. Only one file is accepted per
// request, so any further file part is an unexpected field, including a
// second "file".
func noMoreFiles(mr *multipart.Reader) error {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return partError(err)
		}
		name, field := part.FileName(), part.FormName()
		part.Close()
		if name != "" {
			return intake.Reject(intake.ReasonUnexpectedField, field)
		}
	}
}

func partError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return intake.Reject(intake.ReasonTooLarge, "")
	}
	return intake.Reject(intake.ReasonMissingFile, "")
}

// stage streams src into a dot-prefixed temporary file in dir and returns its
// path. The caller renames it into place once the whole form has been read,
// so a partial or refused upload is never visible under its final name.
func stage(src io.Reader, dir string) (string, int64, error) {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	written, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("chmod upload: %w", err)
	}
	return tmp.Name(), written, nil
}

func (s *Server) archive(ctx context.Context, file model.UploadedFile) {
	payload := queue.ArchivePayload{
		FileName:   file.OriginalName,
		ObjectKey:  fmt.Sprintf("uploads/%s/%s", uuid.NewString(), file.OriginalName),
		UploadedAt: file.UploadedAt,
	}
	if err := s.dispatcher.EnqueueArchive(ctx, payload); err != nil {
		s.logger.Warn("queue archive", zap.String("file", file.OriginalName), zap.Error(err))
	}
}

func (s *Server) rejectUpload(w http.ResponseWriter, r *http.Request, err error) {
	rej, ok := intake.AsRejection(err)
	if !ok {
		rej = intake.Reject(intake.ReasonMissingFile, "")
	}
	status, msg := rejectionResponse(rej)
	s.requestLogger(r).Info("upload rejected", zap.Stringer("reason", rej.Reason), zap.String("detail", rej.Detail))
	respondText(w, status, msg)
}
