package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/pharmaflow/internal/service"
	"github.com/vbonduro/pharmaflow/internal/suggest"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleListHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.RequirementHistory())
}

func (s *Server) handleGetRequirement(w http.ResponseWriter, r *http.Request) {
	e, err := s.service.Requirement(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "get requirement")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleNextRequirementID(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"orderId": s.service.NextRequirementID(s.service.Now())})
}

func (s *Server) handleSaveRequirement(w http.ResponseWriter, r *http.Request) {
	var d service.RequirementDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, wr, err := s.service.SaveRequirement(d)
	if err != nil {
		s.serviceError(w, err, "save requirement")
		return
	}
	s.respondWrite(w, r, e, wr)
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	e, wr, err := s.service.TogglePin(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "toggle pin")
		return
	}
	s.respondWrite(w, r, e, wr)
}

func (s *Server) handleDeleteRequirement(w http.ResponseWriter, r *http.Request) {
	wr, err := s.service.DeleteRequirement(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "delete requirement")
		return
	}
	s.respondWrite(w, r, nil, wr)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.service.Companies(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "list companies")
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// handleExportRequirement streams the workbook. Repeat ?company= to keep
// only those companies' items.
func (s *Server) handleExportRequirement(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := s.service.ExportRequirement(r.PathValue("id"), r.URL.Query()["company"], &buf)
	if err != nil {
		s.serviceError(w, err, "export requirement")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write export failed", "order_id", r.PathValue("id"), "error", err)
	}
}

func (s *Server) handleRequirementShare(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.RequirementShareText(r.PathValue("id"), r.URL.Query()["company"])
	if err != nil {
		s.serviceError(w, err, "share requirement")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleSuggestItems(w http.ResponseWriter, r *http.Request) {
	customer := r.URL.Query().Get("customer")
	writeJSON(w, http.StatusOK, suggest.RankItems(s.service.Inventory(), s.service.Orders(), customer))
}

func (s *Server) handleSuggestQuantities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	item := q.Get("item")
	if item == "" {
		writeError(w, http.StatusBadRequest, "item required")
		return
	}
	writeJSON(w, http.StatusOK, suggest.Quantities(s.service.Orders(), q.Get("customer"), item))
}
