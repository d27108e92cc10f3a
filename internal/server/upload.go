package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// uploadFieldName is the only multipart field the upload endpoint stores.
const uploadFieldName = "file"

// sideEffectTimeout bounds the best-effort mirror and ledger writes.
const sideEffectTimeout = 30 * time.Second

// handleUpload handles POST /upload.
//
// Every part named "file" is read fully, written verbatim to
// <dir>/<stem>.yaml and then converted to <dir>/<stem>.xrpals.yaml. Read and
// write failures reject the request; conversion, mirror and ledger failures
// are logged and the response is still "success". Parts with other names
// are skipped, so a request without a "file" part succeeds and stores
// nothing.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.cfg.MaxUploadBytes {
		s.metrics.RecordUploadError()
		s.reject(w, r, fmt.Errorf("%w: declared %d bytes", ErrPayloadTooLarge, r.ContentLength))
		return
	}
	// Buffer the capped body before touching the disk so an overflow
	// found mid-stream leaves nothing behind.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		s.metrics.RecordUploadError()
		s.reject(w, r, classifyReadError(err))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	mr, err := r.MultipartReader()
	if err != nil {
		s.metrics.RecordUploadError()
		s.reject(w, r, fmt.Errorf("%w: %v", ErrNotMultipart, err))
		return
	}

	stored := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.metrics.RecordUploadError()
			s.reject(w, r, classifyReadError(err))
			return
		}

		if part.FormName() != uploadFieldName {
			_ = part.Close()
			continue
		}

		err = s.storePart(r.Context(), part)
		_ = part.Close()
		if err != nil {
			s.metrics.RecordUploadError()
			s.reject(w, r, err)
			return
		}
		stored++
	}

	s.log.Debug("upload_complete", map[string]interface{}{
		"rid":   RequestIDFromContext(r.Context()),
		"files": stored,
	})
	writeText(w, http.StatusOK, "success")
}

// storePart persists one "file" part and runs the best-effort stages.
func (s *Server) storePart(ctx context.Context, part *multipart.Part) error {
	data, err := io.ReadAll(part)
	if err != nil {
		return classifyReadError(err)
	}

	rid := RequestIDFromContext(ctx)
	now := s.clock.Now().UTC()
	stem := s.cfg.Naming.Stem(now)
	rawPath, convertedPath := uploadPaths(s.cfg.UploadDir, stem)

	if err := s.fs.WriteFile(rawPath, data, 0o644); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, rawPath, err)
	}
	s.metrics.RecordUpload(int64(len(data)))
	s.log.Info("created_file", map[string]interface{}{
		"rid":   rid,
		"path":  rawPath,
		"bytes": len(data),
	})

	rec := UploadRecord{
		Stem:      stem,
		RawPath:   rawPath,
		RawBytes:  int64(len(data)),
		RequestID: rid,
		CreatedAt: now,
	}

	res, convErr := s.converter.Convert(rawPath, convertedPath)
	s.metrics.RecordConversion(res.Points, convErr)
	if convErr != nil {
		rec.ConversionError = convErr.Error()
		s.log.Warn("conversion_failed", map[string]interface{}{
			"rid":  rid,
			"path": rawPath,
		}, convErr)
	} else {
		rec.ConvertedPath = convertedPath
		rec.Points = res.Points
		s.log.Info("created_converted_file", map[string]interface{}{
			"rid":    rid,
			"path":   convertedPath,
			"points": res.Points,
		})
	}

	// The raw file is already durable; finish the optional stages even if
	// the client goes away.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	s.mirrorArtifacts(sctx, rec, data)
	s.recordUpload(sctx, rec)

	return nil
}

func (s *Server) mirrorArtifacts(ctx context.Context, rec UploadRecord, raw []byte) {
	if s.mirror == nil {
		return
	}

	put := func(path string, data []byte) {
		if err := s.mirror.Put(ctx, filepath.Base(path), data); err != nil {
			s.metrics.RecordMirrorFailure()
			s.log.Warn("mirror_failed", map[string]interface{}{
				"rid":  rec.RequestID,
				"path": path,
			}, err)
		}
	}

	put(rec.RawPath, raw)
	if rec.ConvertedPath == "" {
		return
	}
	converted, err := s.fs.ReadFile(rec.ConvertedPath)
	if err != nil {
		s.metrics.RecordMirrorFailure()
		s.log.Warn("mirror_failed", map[string]interface{}{
			"rid":  rec.RequestID,
			"path": rec.ConvertedPath,
		}, err)
		return
	}
	put(rec.ConvertedPath, converted)
}

func (s *Server) recordUpload(ctx context.Context, rec UploadRecord) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, rec); err != nil {
		s.metrics.RecordLedgerFailure()
		s.log.Warn("ledger_record_failed", map[string]interface{}{
			"rid":  rec.RequestID,
			"stem": rec.Stem,
		}, err)
	}
}

// classifyReadError separates an exceeded body cap from other stream
// failures.
func classifyReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %w", ErrRead, err)
}
