package spc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/HerbHall/fillwatch/internal/server"
	"github.com/HerbHall/fillwatch/internal/spc/nelson"
	"github.com/HerbHall/fillwatch/pkg/plugin"
	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/batches", Handler: m.handleListBatches},
		{Method: "GET", Path: "/batches/{batch}", Handler: m.handleGetBatch},
		{Method: "GET", Path: "/modes", Handler: m.handleListModes},
		{Method: "GET", Path: "/rules", Handler: m.handleListRules},
		{Method: "GET", Path: "/chart", Handler: m.handleChart},
		{Method: "POST", Path: "/reload", Handler: m.handleReload},
	}
}

// handleListBatches returns every batch with its statistics.
//
//	@Summary	List batches
//	@Tags		spc
//	@Produce	json
//	@Success	200	{array}		pkgspc.BatchStatistics
//	@Failure	503	{object}	map[string]any
//	@Router		/spc/batches [get]
func (m *Module) handleListBatches(w http.ResponseWriter, r *http.Request) {
	d, ok := m.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.AllStatistics())
}

// handleGetBatch returns one batch's statistics.
//
//	@Summary	Batch statistics
//	@Tags		spc
//	@Produce	json
//	@Param		batch	path		string	true	"Batch number"
//	@Success	200		{object}	pkgspc.BatchStatistics
//	@Failure	404		{object}	map[string]any
//	@Router		/spc/batches/{batch} [get]
func (m *Module) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	d, ok := m.snapshot(w, r)
	if !ok {
		return
	}
	st, err := d.Statistics(r.PathValue("batch"))
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleListModes returns the selectable IPC modes.
//
//	@Summary	List IPC modes
//	@Tags		spc
//	@Produce	json
//	@Success	200	{array}	string
//	@Router		/spc/modes [get]
func (m *Module) handleListModes(w http.ResponseWriter, r *http.Request) {
	d, ok := m.snapshot(w, r)
	if !ok {
		return
	}
	modes := d.Modes()
	if modes == nil {
		modes = []string{}
	}
	writeJSON(w, http.StatusOK, modes)
}

// handleListRules returns the rule catalogue.
//
//	@Summary	List Nelson rules
//	@Tags		spc
//	@Produce	json
//	@Success	200	{array}	nelson.RuleInfo
//	@Router		/spc/rules [get]
func (m *Module) handleListRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nelson.Catalogue())
}

// handleChart evaluates the selected rules over a batch and mode.
//
//	@Summary	Control chart
//	@Tags		spc
//	@Produce	json
//	@Param		batch	query		string	false	"Batch number (default first)"
//	@Param		mode	query		string	false	"IPC mode (default first)"
//	@Param		rules	query		string	false	"Comma-separated rule IDs; empty for none"
//	@Success	200		{object}	pkgspc.Chart
//	@Failure	400		{object}	map[string]any
//	@Failure	404		{object}	map[string]any
//	@Failure	503		{object}	map[string]any
//	@Router		/spc/chart [get]
func (m *Module) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ChartRequest{Batch: q.Get("batch"), Mode: q.Get("mode")}
	if q.Has("rules") {
		set, err := pkgspc.ParseRuleSet(strings.Split(q.Get("rules"), ","))
		if err != nil {
			m.writeErr(w, r, err)
			return
		}
		req.Rules = &set
	}

	chart, err := m.Chart(req)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// ReloadResponse is returned by POST /reload.
type ReloadResponse struct {
	Batches      int `json:"batches"`
	Measurements int `json:"measurements"`
}

// handleReload reloads measurements from the source.
//
//	@Summary	Reload dataset
//	@Tags		spc
//	@Produce	json
//	@Success	200	{object}	ReloadResponse
//	@Failure	500	{object}	map[string]any
//	@Router		/spc/reload [post]
func (m *Module) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := m.Reload(r.Context()); err != nil {
		m.writeErr(w, r, err)
		return
	}
	d, err := m.Dataset()
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{Batches: len(d.batches), Measurements: d.Len()})
}

func (m *Module) snapshot(w http.ResponseWriter, r *http.Request) (*Dataset, bool) {
	d, err := m.Dataset()
	if err != nil {
		m.writeErr(w, r, err)
		return nil, false
	}
	return d, true
}

// writeErr maps domain errors to problem responses.
func (m *Module) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pkgspc.ErrUnknownRule), errors.Is(err, ErrMissingMode):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnknownBatch):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotLoaded):
		status = http.StatusServiceUnavailable
	}
	server.WriteError(w, status, err.Error(), r.URL.Path)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
