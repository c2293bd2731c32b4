package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dharsanguruparan/intake/internal/intake"
)

// rejectionResponse is the single mapping from a rejection reason to the
// status code and message sent to clients.
func rejectionResponse(rej *intake.Rejection) (int, string) {
	switch rej.Reason {
	case intake.ReasonMissingFile:
		return http.StatusBadRequest, "File tidak ditemukan!"
	case intake.ReasonUnexpectedField:
		return http.StatusBadRequest, "Unexpected field"
	case intake.ReasonExtension:
		return http.StatusBadRequest, fmt.Sprintf(`[!] Ekstensi "%s" ga boleh, jangan ngeyel!`, rej.Detail)
	case intake.ReasonUnsafeName:
		return http.StatusBadRequest, "Nama file tidak valid!"
	case intake.ReasonBlacklisted:
		return http.StatusForbidden, "Nama file ini diblokir!"
	case intake.ReasonTooLarge:
		return http.StatusRequestEntityTooLarge, "File terlalu besar!"
	case intake.ReasonReportMissing:
		return http.StatusBadRequest, "Laporan tidak valid."
	case intake.ReasonReportFormat:
		return http.StatusBadRequest, "Format laporan tidak diizinkan."
	default:
		return http.StatusBadRequest, "Permintaan tidak valid."
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
