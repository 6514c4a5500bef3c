package synth

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/mr-karan/wgmesh/internal/mesh"
	"github.com/mr-karan/wgmesh/internal/wgcrypto"
)

// GenerateZip synthesizes the full archive for a MeshSpec: per-node and
// per-client conf files, an optional babeld fragment per node, and the
// manifest, laid out:
//
//	nodes/<sanitized-name>/<interface>.conf
//	nodes/<sanitized-name>/babeld.conf   (optional)
//	clients/<sanitized-name>/<interface>.conf
//	manifest.json
func GenerateZip(spec mesh.MeshSpec, pskFn wgcrypto.PSKFunc) ([]byte, error) {
	resolved, err := mesh.Resolve(spec)
	if err != nil {
		return nil, err
	}

	psks := wgcrypto.NewCache(pskFn)
	iface := InterfaceFilename(spec.InterfaceName)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, node := range resolved.Nodes {
		conf, err := RenderNodeConfig(resolved, i, psks)
		if err != nil {
			return nil, err
		}
		path := fmt.Sprintf("nodes/%s/%s", SanitizeFilename(node.Name), iface)
		if err := writeZipFile(zw, path, conf); err != nil {
			return nil, err
		}

		if spec.EnableBabel {
			babel, err := RenderBabeld(spec.InterfaceName, spec.NetworkCIDR)
			if err != nil {
				return nil, err
			}
			babelPath := fmt.Sprintf("nodes/%s/babeld.conf", SanitizeFilename(node.Name))
			if err := writeZipFile(zw, babelPath, babel); err != nil {
				return nil, err
			}
		}
	}

	for i, client := range resolved.Clients {
		conf, err := RenderClientConfig(resolved, i, psks)
		if err != nil {
			return nil, err
		}
		path := fmt.Sprintf("clients/%s/%s", SanitizeFilename(client.Name), iface)
		if err := writeZipFile(zw, path, conf); err != nil {
			return nil, err
		}
	}

	manifest := BuildManifest(resolved, psks)
	manifestJSON, err := manifest.MarshalCanonical()
	if err != nil {
		return nil, err
	}
	if err := writeZipFile(zw, "manifest.json", string(manifestJSON)); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing zip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipFile(zw *zip.Writer, name, content string) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating zip entry %s: %w", name, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return fmt.Errorf("writing zip entry %s: %w", name, err)
	}
	return nil
}
