package synth

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mr-karan/wgmesh/internal/mesh"
	"github.com/mr-karan/wgmesh/internal/wgcrypto"
)

func fixedKeySpec() mesh.MeshSpec {
	return mesh.MeshSpec{
		NetworkCIDR:         "10.20.0.0/24",
		InterfaceName:       "wg0",
		EndpointVersion:     mesh.EndpointIPv4,
		PersistentKeepalive: 25,
		AutoGenerateKeys:    false,
		Nodes: []mesh.NodeInput{
			{Name: "N1", Endpoint: "1.1.1.1", ListenPort: 51820, PrivateKey: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="},
			{Name: "N2", Endpoint: "2.2.2.2", ListenPort: 51820, PrivateKey: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAE="},
		},
	}
}

func TestGenerateZipDeterministicManifest(t *testing.T) {
	spec := fixedKeySpec()

	zip1, err := GenerateZip(spec, wgcrypto.DeterministicPSK)
	require.NoError(t, err)
	zip2, err := GenerateZip(spec, wgcrypto.DeterministicPSK)
	require.NoError(t, err)

	manifest1 := extractManifest(t, zip1)
	manifest2 := extractManifest(t, zip2)
	require.Equal(t, manifest1, manifest2)
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "my_node_1", SanitizeFilename("my node!1"))
	require.Equal(t, "wg0", SanitizeFilename(" wg0 "))
}

func TestFormatEndpoint(t *testing.T) {
	require.Equal(t, "1.2.3.4:51820", FormatEndpoint(mesh.EndpointIPv4, "1.2.3.4", 51820))
	require.Equal(t, "[::1]:51820", FormatEndpoint(mesh.EndpointIPv6, "[::1]", 51820))
	require.Equal(t, "[::1]:51820", FormatEndpoint(mesh.EndpointIPv6, "::1", 51820))
}

func extractManifest(t *testing.T, zipBytes []byte) string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	require.NoError(t, err)
	for _, f := range r.File {
		if f.Name == "manifest.json" {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			buf, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(buf)
		}
	}
	t.Fatal("manifest.json not found in archive")
	return ""
}
