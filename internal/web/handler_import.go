package web

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const maxImportSize = 10 * 1024 * 1024 // 10 MB

var importExtensions = map[string]bool{
	".xlsx": true,
	".csv":  true,
}

// importFile extracts the "file" part of a multipart upload. It writes the
// error response itself and returns ok=false when the request is unusable.
func (s *Server) importFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return nil, "", false
	}
	name := header.Filename
	if !importExtensions[strings.ToLower(filepath.Ext(name))] {
		closeWithLog(file, "import file", s.logger)
		writeError(w, http.StatusBadRequest, "unsupported file type, want .xlsx or .csv")
		return nil, "", false
	}
	return file, name, true
}

func (s *Server) handleImportInventory(w http.ResponseWriter, r *http.Request) {
	file, name, ok := s.importFile(w, r)
	if !ok {
		return
	}
	defer closeWithLog(file, "import file", s.logger)

	items, wr, err := s.service.ImportInventoryFile(file, name)
	if err != nil {
		s.serviceError(w, err, "import inventory")
		return
	}
	s.respondWrite(w, r, items, wr)
}

func (s *Server) handleImportCustomers(w http.ResponseWriter, r *http.Request) {
	file, name, ok := s.importFile(w, r)
	if !ok {
		return
	}
	defer closeWithLog(file, "import file", s.logger)

	customers, wr, err := s.service.ImportCustomersFile(file, name)
	if err != nil {
		s.serviceError(w, err, "import customers")
		return
	}
	s.respondWrite(w, r, customers, wr)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
