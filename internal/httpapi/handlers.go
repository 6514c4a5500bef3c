package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/provisioning"
	"github.com/mr-karan/wgmesh/internal/state"
)

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apierr.New(apierr.KindValidation, "malformed request body: "+err.Error())
	}
	return nil
}

func (s *Server) handleListInterfaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListInterfaces()
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) handleGetInterface(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	details, err := s.svc.GetInterfaceDetails(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, details)
}

type applyPeersRequest struct {
	Revision   uint64                       `json:"revision"`
	DryRun     bool                         `json:"dryRun"`
	Operations []provisioning.PeerOperation `json:"operations"`
}

func (s *Server) handleApplyPeers(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req applyPeersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.svc.ApplyPeerOperations(name, provisioning.ApplyRequest{
		Revision:   req.Revision,
		DryRun:     req.DryRun,
		Operations: req.Operations,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

type toggleRequest struct {
	Revision uint64 `json:"revision"`
	IsUp     bool   `json:"isUp"`
	DryRun   bool   `json:"dryRun"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.svc.ToggleInterfaceState(name, provisioning.ToggleRequest{
		Revision: req.Revision,
		IsUp:     req.IsUp,
		DryRun:   req.DryRun,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

type reconcileRequest struct {
	Revision uint64                      `json:"revision"`
	Mode     provisioning.ReconcileMode  `json:"mode"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.svc.ReconcileInterface(name, provisioning.ReconcileRequest{
		Revision: req.Revision,
		Mode:     req.Mode,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	cursor := r.URL.Query().Get("cursor")

	page := s.svc.Audit(name, limit, cursor)
	writeData(w, http.StatusOK, page)
}

type deployPeerRequest struct {
	PeerID              string   `json:"peerId"`
	Name                string   `json:"name"`
	PublicKey           string   `json:"publicKey"`
	AllowedIPs          []string `json:"allowedIps"`
	Endpoint            string   `json:"endpoint"`
	PersistentKeepalive uint16   `json:"persistentKeepalive"`
	IsActive            bool     `json:"isActive"`
}

type deployRequest struct {
	Interface   string              `json:"interface"`
	ListenPort  int                 `json:"listenPort"`
	AddressCIDR string              `json:"addressCidr"`
	PrivateKey  string              `json:"privateKey"`
	Peers       []deployPeerRequest `json:"peers"`
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	peers := make([]state.Peer, len(req.Peers))
	for i, p := range req.Peers {
		peers[i] = state.Peer{
			PeerID:              p.PeerID,
			Name:                p.Name,
			PublicKey:           p.PublicKey,
			AllowedIPs:          p.AllowedIPs,
			Endpoint:            p.Endpoint,
			PersistentKeepalive: p.PersistentKeepalive,
			IsActive:            p.IsActive,
		}
	}

	result, err := s.svc.DeployMeshConfig(provisioning.DeployRequest{
		Interface:   req.Interface,
		ListenPort:  req.ListenPort,
		AddressCIDR: req.AddressCIDR,
		PrivateKey:  req.PrivateKey,
		Peers:       peers,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, result)
}
