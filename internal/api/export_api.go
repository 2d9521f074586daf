package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"labbook/internal/metrics"
	"labbook/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/export.xlsx
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	var buf bytes.Buffer
	if err := report.Export(r.Context(), s.export, &buf); err != nil {
		s.writeDomainError(w, err)
		return
	}

	name := fmt.Sprintf("labbook_%s.xlsx", s.now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
