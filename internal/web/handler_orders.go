package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/service"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

func (s *Server) handleListOrders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Orders())
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.service.Order(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "get order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var d service.OrderDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, wr, err := s.service.PlaceOrder(d)
	if err != nil {
		s.serviceError(w, err, "place order")
		return
	}
	s.respondWrite(w, r, o, wr)
}

func (s *Server) handleEditOrder(w http.ResponseWriter, r *http.Request) {
	var d service.OrderDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, wr, err := s.service.EditOrder(r.PathValue("id"), d)
	if err != nil {
		s.serviceError(w, err, "edit order")
		return
	}
	s.respondWrite(w, r, o, wr)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	wr, err := s.service.DeleteOrder(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "delete order")
		return
	}
	s.respondWrite(w, r, nil, wr)
}

func (s *Server) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, wr, err := s.service.SetOrderStatus(r.PathValue("id"), body.Status)
	if err != nil {
		s.serviceError(w, err, "set order status")
		return
	}
	s.respondWrite(w, r, o, wr)
}

// handleSetOrderFlag serves the legacy taken/delivered toggles.
func (s *Server) handleSetOrderFlag(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Value bool `json:"value"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		id := r.PathValue("id")
		var (
			o   domain.Order
			wr  *syncer.Write
			err error
		)
		if field == "taken" {
			o, wr, err = s.service.SetTaken(id, body.Value)
		} else {
			o, wr, err = s.service.SetDelivered(id, body.Value)
		}
		if err != nil {
			s.serviceError(w, err, "set order "+field)
			return
		}
		s.respondWrite(w, r, o, wr)
	}
}

func (s *Server) handleToggleHighlight(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item index")
		return
	}
	o, wr, err := s.service.ToggleItemHighlight(r.PathValue("id"), index)
	if err != nil {
		s.serviceError(w, err, "toggle highlight")
		return
	}
	s.respondWrite(w, r, o, wr)
}

func (s *Server) handleSetDeadline(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Deadline *time.Time `json:"deadline"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, wr, err := s.service.SetDeadline(r.PathValue("id"), body.Deadline)
	if err != nil {
		s.serviceError(w, err, "set deadline")
		return
	}
	s.respondWrite(w, r, o, wr)
}

func (s *Server) handleOrderShare(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.OrderShareText(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "share order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// handleDashboard lists today's orders, or every order with ?all=true.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Dashboard(s.service.Now(), queryBool(r, "all")))
}
