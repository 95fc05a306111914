package web

import (
	"net/http"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/service"
)

func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, s.service.SearchInventory(q))
		return
	}
	writeJSON(w, http.StatusOK, s.service.Inventory())
}

func (s *Server) handleAddInventory(w http.ResponseWriter, r *http.Request) {
	var item domain.InventoryItem
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	added, wr, err := s.service.AddInventoryItem(item)
	if err != nil {
		s.serviceError(w, err, "add inventory item")
		return
	}
	s.respondWrite(w, r, added, wr)
}

func (s *Server) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var patch service.InventoryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, wr, err := s.service.UpdateInventoryItem(r.PathValue("id"), patch)
	if err != nil {
		s.serviceError(w, err, "update inventory item")
		return
	}
	s.respondWrite(w, r, item, wr)
}

func (s *Server) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	wr, err := s.service.DeleteInventoryItem(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "delete inventory item")
		return
	}
	s.respondWrite(w, r, nil, wr)
}

func (s *Server) handleUnits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.UnitOptions())
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, s.service.SearchCustomers(q))
		return
	}
	writeJSON(w, http.StatusOK, s.service.Customers())
}

func (s *Server) handleAddCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string  `json:"name"`
		Area *string `json:"area"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, wr, err := s.service.AddCustomer(body.Name, body.Area)
	if err != nil {
		s.serviceError(w, err, "add customer")
		return
	}
	s.respondWrite(w, r, c, wr)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	wr, err := s.service.DeleteCustomer(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "delete customer")
		return
	}
	s.respondWrite(w, r, nil, wr)
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, s.service.SearchEmployees(q))
		return
	}
	writeJSON(w, http.StatusOK, s.service.Employees())
}

func (s *Server) handleAddEmployee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string            `json:"name"`
		Password string            `json:"password"`
		Extra    map[string]string `json:"extra"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, wr, err := s.service.AddEmployee(body.Name, body.Password, body.Extra)
	if err != nil {
		s.serviceError(w, err, "add employee")
		return
	}
	s.respondWrite(w, r, e, wr)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	wr, err := s.service.DeleteEmployee(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "delete employee")
		return
	}
	s.respondWrite(w, r, nil, wr)
}

func (s *Server) handleVerifyEmployee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := s.service.CheckEmployeePassword(r.PathValue("id"), body.Password)
	if err != nil {
		s.serviceError(w, err, "verify employee")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}
