package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/pharmaflow/internal/docstore"
	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/service"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

const maxBodySize = 1 << 20 // 1 MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// serviceError maps a service error onto an HTTP status.
func (s *Server) serviceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalid), errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, syncer.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, syncer.ErrNotSynced), errors.Is(err, syncer.ErrUndecodable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(action+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

type writeResult struct {
	Data        any                `json:"data,omitempty"`
	WriteID     string             `json:"writeId,omitempty"`
	WriteStatus syncer.WriteStatus `json:"writeStatus"`
	Revision    int64              `json:"revision,omitempty"`
}

// respondWrite answers a mutation. By default it returns 202 as soon as the
// local state changed. With ?wait=true it blocks until the remote write
// settles and reports a conflict as 409 and any other failure as 502.
func (s *Server) respondWrite(w http.ResponseWriter, r *http.Request, data any, wr *syncer.Write) {
	res := writeResult{Data: data}
	if wr == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	res.WriteID = wr.ID

	if !queryBool(r, "wait") {
		res.WriteStatus = wr.Status()
		writeJSON(w, http.StatusAccepted, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.waitTimeout)
	defer cancel()
	err := wr.Wait(ctx)
	res.WriteStatus = wr.Status()
	res.Revision = wr.Revision()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case res.WriteStatus == syncer.WritePending:
		// Gave up waiting; the write is still queued.
		writeJSON(w, http.StatusAccepted, res)
	case errors.Is(err, docstore.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "writeId": wr.ID, "writeStatus": res.WriteStatus})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "writeId": wr.ID, "writeStatus": res.WriteStatus})
	}
}
