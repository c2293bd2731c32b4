package server

import (
	"encoding/json"
	"io"
	"mime"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/intake/internal/intake"
	"github.com/dharsanguruparan/intake/internal/model"
)

const (
	reportField       = "laporan"
	reportAccepted    = "Laporan diterima. Terima kasih!"
	reportStoreFailed = "Gagal menyimpan laporan."
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	path, err := intake.CheckReport(reportValues(r))
	if err != nil {
		rej, _ := intake.AsRejection(err)
		status, msg := rejectionResponse(rej)
		log.Info("report rejected", zap.Stringer("reason", rej.Reason))
		respondJSON(w, status, map[string]string{"error": msg})
		return
	}
	rec := model.NewReportRecord(s.now(), path, clientIP(r))
	if err := s.reports.Append(r.Context(), rec); err != nil {
		log.Error("append report", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": reportStoreFailed})
		return
	}
	log.Info("report accepted", zap.String("path", rec.Path), zap.String("ip", rec.IP))
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": reportAccepted})
}

// reportValues extracts the report field from a form-encoded or JSON body.
// A JSON value that is not a string yields no values.
func reportValues(r *http.Request) []string {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
			return nil
		}
		var v string
		if err := json.Unmarshal(body[reportField], &v); err != nil {
			return nil
		}
		return []string{v}
	}
	if err := r.ParseForm(); err != nil {
		return nil
	}
	return r.PostForm[reportField]
}

// clientIP returns the host part of the peer address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
