package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/SWORDIntel/Z-FORGE/internal/discovery"
	"github.com/SWORDIntel/Z-FORGE/internal/provision"
	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
	"github.com/SWORDIntel/Z-FORGE/pkg/httpx"
)

type poolReport struct {
	ScannedAt time.Time   `json:"scannedAt"`
	Pools     []*zfs.Pool `json:"pools"`
}

// handleListPools serves the cached discovery report. ?refresh=1 forces a
// new scan before answering.
func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools, scannedAt := s.snapshot()
	if pools == nil || r.URL.Query().Get("refresh") == "1" {
		if err := s.Refresh(r.Context()); err != nil {
			var derr *discovery.DiscoveryError
			if errors.As(err, &derr) {
				httpx.WriteTypedError(w, http.StatusBadGateway, "discovery.failed", derr.Error(), 0)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		pools, scannedAt = s.snapshot()
	}

	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	sort.Strings(names)
	report := poolReport{ScannedAt: scannedAt, Pools: make([]*zfs.Pool, 0, len(pools))}
	for _, name := range names {
		report.Pools = append(report.Pools, pools[name])
	}
	httpx.WriteJSON(w, report)
}

type planResponse struct {
	State    provision.State             `json:"state"`
	Errors   []provision.ValidationError `json:"errors,omitempty"`
	Warnings []string                    `json:"warnings,omitempty"`
	Plan     *provision.CommandPlan      `json:"plan,omitempty"`
	Reuse    *provision.ReuseDescriptor  `json:"reuse,omitempty"`
}

// handlePlan validates a selection against the cached report and returns
// either a command plan or the collected rejection reasons.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req provision.SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pools, _ := s.snapshot()
	if pools == nil {
		if err := s.Refresh(r.Context()); err != nil {
			var derr *discovery.DiscoveryError
			if errors.As(err, &derr) {
				httpx.WriteTypedError(w, http.StatusBadGateway, "discovery.failed", derr.Error(), 0)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		pools, _ = s.snapshot()
	}

	result := provision.ValidateAndPlan(req, pools)
	resp := planResponse{
		State:    result.State,
		Errors:   result.Errors,
		Warnings: result.Warnings,
		Plan:     result.Plan,
		Reuse:    result.Reuse,
	}
	if result.State == provision.StateReady {
		s.metrics.planRequests.WithLabelValues("ready").Inc()
		httpx.WriteJSON(w, resp)
		return
	}
	s.metrics.planRequests.WithLabelValues("rejected").Inc()
	httpx.WriteJSONStatus(w, http.StatusUnprocessableEntity, resp)
}

type presetInfo struct {
	Name       provision.Preset  `json:"name"`
	Properties map[string]string `json:"properties"`
}

type presetsResponse struct {
	Presets           []presetInfo `json:"presets"`
	RecommendedArcMax uint64       `json:"recommendedArcMax"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	resp := presetsResponse{}
	for _, p := range []provision.Preset{provision.PresetGeneral, provision.PresetVirtualHost, provision.PresetBulkStorage} {
		resp.Presets = append(resp.Presets, presetInfo{Name: p, Properties: provision.PresetProperties(p)})
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.RecommendedArcMax = provision.RecommendArcMax(vm.Total)
	}
	httpx.WriteJSON(w, resp)
}
