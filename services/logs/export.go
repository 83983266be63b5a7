package logs

import (
	"encoding/json"
	"net/http"

	"github.com/klauspost/compress/zstd"

	"posd/pkg/web"
	"posd/services/staff"
)

// handleExport streams the store's full activity history as zstd-compressed
// NDJSON, most recent entry first.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	encoder, err := zstd.NewWriter(w)
	if err != nil {
		web.RespondError(w, http.StatusInternalServerError, string(CodeStorage), "init compressor")
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="activity-logs.ndjson.zst"`)

	lines := json.NewEncoder(encoder)
	exportErr := h.engine.Export(r.Context(), claims.StoreID, func(e Entry) error {
		return lines.Encode(e)
	})

	// Headers are already on the wire; a mid-stream failure can only
	// truncate the download.
	if exportErr != nil {
		_ = encoder.Close()
		return
	}
	_ = encoder.Close()
}
