package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"repoassess/internal/assess"
	"repoassess/internal/jobs"
	"repoassess/internal/util/jsonutil"
)

const maxBodyBytes = 1 << 20

type createRequest struct {
	Path   string `json:"path"`
	URL    string `json:"url"`
	Branch string `json:"branch"`
	Wait   bool   `json:"wait"`
}

type createResponse struct {
	JobID  string      `json:"jobId"`
	Status jobs.Status `json:"status"`
}

type errorBody struct {
	Error jobs.ErrorView `json:"error"`
}

var errBadRequest = errors.New("bad request")

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case assess.KindInvalidArgument:
		return http.StatusBadRequest
	case assess.KindNotFound:
		return http.StatusNotFound
	case assess.KindOperation:
		return http.StatusBadGateway
	case assess.KindCanceled:
		return http.StatusConflict
	case assess.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		log.Printf("server: encode response: %v", err)
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, kind, msg string) {
	writeJSON(w, statusFor(kind), errorBody{Error: jobs.ErrorView{Kind: kind, Message: msg}})
}

func writeErr(w http.ResponseWriter, err error) {
	kind := assess.Kind(err)
	if errors.Is(err, errBadRequest) {
		kind = assess.KindInvalidArgument
	}
	writeError(w, kind, err.Error())
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) createAssessment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErr(w, fmt.Errorf("%w: read body: %v", errBadRequest, err))
		return
	}
	var req createRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, fmt.Errorf("%w: decode body: %v", errBadRequest, err))
		return
	}
	view, err := a.jobs.Submit(jobs.Request{Path: req.Path, URL: req.URL, Branch: req.Branch})
	if err != nil {
		writeErr(w, err)
		return
	}
	if !req.Wait {
		writeJSON(w, http.StatusAccepted, createResponse{JobID: view.ID, Status: view.Status})
		return
	}

	done, err := a.jobs.Wait(r.Context(), view.ID)
	if err != nil {
		// The client went away; stop the work it asked for.
		_, _ = a.jobs.Cancel(view.ID)
		writeErr(w, err)
		return
	}
	if done.Error != nil {
		writeError(w, done.Error.Kind, done.Error.Message)
		return
	}
	writeJSON(w, http.StatusOK, done.Result)
}

func (a *API) getAssessment(w http.ResponseWriter, r *http.Request) {
	view, err := a.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) cancelAssessment(w http.ResponseWriter, r *http.Request) {
	view, err := a.jobs.Cancel(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

func (a *API) listGraphs(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	keys, err := a.store.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (a *API) getGraph(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if a.store == nil {
		writeError(w, assess.KindNotFound, "graph store is not configured")
		return
	}
	data, err := a.store.Get(r.Context(), hash)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}
