package httpapi

import (
	"net/http"

	"github.com/mr-karan/wgmesh/internal/mesh"
	"github.com/mr-karan/wgmesh/internal/synth"
)

// handleGenerate resolves a mesh spec and streams back a zip archive of
// per-node/per-client configs plus the manifest. It is stateless:
// nothing is persisted or deployed.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var spec mesh.MeshSpec
	if err := decodeJSON(r, &spec); err != nil {
		writeError(w, err)
		return
	}

	archive, err := synth.GenerateZip(spec, s.pskFunc)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+synth.SanitizeFilename(spec.InterfaceName)+`-mesh.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
