package runtimeadapter

import (
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/mr-karan/wgmesh/internal/apierr"
)

// WGCtl is the exec-backed Adapter implementation: it shells out to the
// `wg` and `ip` command-line tools to read and mutate live interfaces.
type WGCtl struct {
	logger  *slog.Logger
	wgBin   string
	ipBin   string
	runner  commandRunner
}

type commandRunner func(bin string, args ...string) (stdout, stderr string, err error)

// NewWGCtl constructs a WGCtl using the real os/exec runner. Empty
// wgBin/ipBin fall back to "wg"/"ip" on $PATH.
func NewWGCtl(logger *slog.Logger, wgBin, ipBin string) *WGCtl {
	if wgBin == "" {
		wgBin = "wg"
	}
	if ipBin == "" {
		ipBin = "ip"
	}
	return &WGCtl{
		logger: logger,
		wgBin:  wgBin,
		ipBin:  ipBin,
		runner: execRunner,
	}
}

func execRunner(bin string, args ...string) (string, string, error) {
	cmd := exec.Command(bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (w *WGCtl) run(bin string, args ...string) (string, error) {
	stdout, stderr, err := w.runner(bin, args...)
	if err != nil {
		exitCode := 0
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return stdout, classifyCommandError(fmt.Sprintf("%s %s: %v", bin, strings.Join(args, " "), err), exitCode, stderr)
	}
	return stdout, nil
}

// ListInterfaces runs `wg show interfaces`.
func (w *WGCtl) ListInterfaces() ([]string, error) {
	out, err := w.run(w.wgBin, "show", "interfaces")
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// GetInterface runs `wg show <name> dump` and parses the tab-separated
// output: first line is interface info (4 fields),
// remaining lines are peers (8 fields).
func (w *WGCtl) GetInterface(name string) (RuntimeInterface, error) {
	out, err := w.run(w.wgBin, "show", name, "dump")
	if err != nil {
		return RuntimeInterface{}, err
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return RuntimeInterface{}, classifyCommandError("no such device", 0, "No such device")
	}

	ifaceFields := strings.Split(lines[0], "\t")
	iface := RuntimeInterface{Name: name}
	if len(ifaceFields) >= 1 {
		iface.PrivateKey = emptyDash(ifaceFields[0])
	}
	if len(ifaceFields) >= 2 {
		iface.PublicKey = emptyDash(ifaceFields[1])
	}
	if len(ifaceFields) >= 3 {
		iface.ListenPort, _ = strconv.Atoi(ifaceFields[2])
	}
	if len(ifaceFields) >= 4 {
		iface.FWMark, _ = strconv.Atoi(ifaceFields[3])
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 8 {
			continue
		}
		peer := RuntimePeer{
			PublicKey:    fields[0],
			PresharedKey: emptyDash(fields[1]),
			Endpoint:     emptyDash(fields[2]),
			AllowedIPs:   splitNonEmpty(fields[3], ","),
		}
		peer.LatestHandshake, _ = parseInt64(fields[4])
		rx, _ := parseUint64(fields[5])
		tx, _ := parseUint64(fields[6])
		peer.TransferRx, peer.TransferTx = rx, tx
		ka, _ := strconv.Atoi(fields[7])
		peer.PersistentKeepalive = uint16(ka)
		iface.Peers = append(iface.Peers, peer)
	}

	return iface, nil
}

// AddPeer runs `wg set <name> peer <pub> allowed-ips <csv> [endpoint ...]
// [persistent-keepalive ...] [preshared-key <path>]`, passing the PSK
// via a 0600 temp file
func (w *WGCtl) AddPeer(name string, peer PeerConfig) error {
	args := []string{"set", name, "peer", peer.PublicKey, "allowed-ips", strings.Join(peer.AllowedIPs, ",")}
	if peer.Endpoint != "" {
		args = append(args, "endpoint", peer.Endpoint)
	}
	if peer.PersistentKeepalive > 0 {
		args = append(args, "persistent-keepalive", strconv.Itoa(int(peer.PersistentKeepalive)))
	}

	if peer.PresharedKey == "" {
		_, err := w.run(w.wgBin, args...)
		return err
	}

	return withSecretFile(peer.PresharedKey, func(path string) error {
		_, err := w.run(w.wgBin, append(args, "preshared-key", path)...)
		return err
	})
}

// RemovePeer runs `wg set <name> peer <pub> remove`. If opts.IgnoreIfMissing
// is set, a NotExists-classified failure is treated as success.
func (w *WGCtl) RemovePeer(name, publicKey string, opts RemoveOpts) error {
	_, err := w.run(w.wgBin, "set", name, "peer", publicKey, "remove")
	if err != nil && opts.IgnoreIfMissing && isIgnorableMissing(err) {
		return nil
	}
	return err
}

// UpdatePeer is semantically equivalent to AddPeer
func (w *WGCtl) UpdatePeer(name string, peer PeerConfig) error {
	return w.AddPeer(name, peer)
}

// ToggleInterface runs `ip link set <name> up|down`.
func (w *WGCtl) ToggleInterface(name string, isUp bool) error {
	state := "down"
	if isUp {
		state = "up"
	}
	_, err := w.run(w.ipBin, "link", "set", name, state)
	return err
}

// UpInterface ensures the link exists, applies the private key and
// listen port (via a 0600 temp file), assigns the address (ignoring
// "already exists"), and sets the link up.
func (w *WGCtl) UpInterface(name string, opts UpOpts) error {
	if _, err := w.run(w.ipBin, "link", "add", name, "type", "wireguard"); err != nil && !isAlreadyExists(err) {
		return err
	}

	err := withSecretFile(opts.PrivateKey, func(path string) error {
		_, err := w.run(w.wgBin, "set", name, "private-key", path, "listen-port", strconv.Itoa(opts.ListenPort))
		return err
	})
	if err != nil {
		return err
	}

	if opts.Address != "" {
		if _, err := w.run(w.ipBin, "addr", "add", opts.Address, "dev", name); err != nil && !isAlreadyExists(err) {
			return err
		}
	}

	return w.ToggleInterface(name, true)
}

// GetSystemInfo is best-effort and never fails.
func (w *WGCtl) GetSystemInfo() SystemInfo {
	info := SystemInfo{Hostname: "unknown", Version: "unknown"}

	if out, err := w.run("hostname"); err == nil {
		info.Hostname = strings.TrimSpace(out)
	} else {
		w.logger.Debug("hostname probe failed", "error", err)
	}

	if out, err := w.run(w.wgBin, "--version"); err == nil {
		info.Version = strings.TrimSpace(out)
	} else {
		w.logger.Debug("wg --version probe failed", "error", err)
	}

	return info
}

func emptyDash(s string) string {
	if s == "(none)" || s == "off" {
		return ""
	}
	return s
}

func splitNonEmpty(s, sep string) []string {
	if s == "" || s == "(none)" {
		return nil
	}
	return strings.Split(s, sep)
}

func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err
}

func parseUint64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err
}

func isIgnorableMissing(err error) bool {
	return apierr.Is(err, apierr.KindNotExists) || isNotExistsOutput(err.Error())
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "file exists") || strings.Contains(msg, "already exists")
}

// ParseKey validates a base64 key string using wgtypes, the same type
// the rest of the WireGuard Go ecosystem uses for key handling.
func ParseKey(b64 string) (wgtypes.Key, error) {
	return wgtypes.ParseKey(b64)
}
