// Package netmgr scans for and joins wifi networks by driving
// NetworkManager's command-line tool, the way a person at a shell would.
package netmgr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/trace"
)

var inetRE = regexp.MustCompile(`inet (\d+\.\d+\.\d+\.\d+)`)

// Manager runs nmcli against one wireless interface.
type Manager struct {
	iface string
	log   trace.EventLog
}

// New returns a Manager for the named wireless interface, usually wlan0.
func New(iface string) *Manager {
	return &Manager{
		iface: iface,
		log:   trace.NewEventLog("netmgr", iface),
	}
}

// Close releases the Manager's debug log.
func (m *Manager) Close() {
	m.log.Finish()
}

// ScanNetworks asks NetworkManager for the SSIDs in range, deduplicated
// and sorted.  An empty result is not an error; plenty of places have no
// wifi.
func (m *Manager) ScanNetworks(ctx context.Context) ([]string, error) {
	m.log.Printf("scanning for networks")
	out, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "SSID", "device", "wifi", "list").Output()
	if err != nil {
		m.log.Errorf("scan: %v", err)
		return nil, fmt.Errorf("nmcli wifi list: %w", err)
	}
	ssids := parseSSIDs(out)
	m.log.Printf("found %d networks", len(ssids))
	return ssids, nil
}

// Connect creates a WPA-PSK connection profile for ssid and brings it up,
// blocking until NetworkManager reports an outcome.  The profile persists,
// so the network rejoins on its own after a reboot.
func (m *Manager) Connect(ctx context.Context, ssid, password string) error {
	m.log.Printf("adding connection profile for %q", ssid)
	add := exec.CommandContext(ctx, "nmcli", "connection", "add",
		"type", "wifi",
		"ifname", m.iface,
		"con-name", ssid,
		"ssid", ssid,
		"--",
		"wifi-sec.key-mgmt", "wpa-psk",
		"wifi-sec.psk", password)
	if out, err := add.CombinedOutput(); err != nil {
		m.log.Errorf("add connection: %v (%s)", err, firstLine(out))
		return fmt.Errorf("nmcli connection add: %w", err)
	}
	m.log.Printf("activating %q", ssid)
	up := exec.CommandContext(ctx, "nmcli", "connection", "up", ssid)
	if out, err := up.CombinedOutput(); err != nil {
		m.log.Errorf("activate connection: %v (%s)", err, firstLine(out))
		return fmt.Errorf("nmcli connection up: %w", err)
	}
	m.log.Printf("joined %q", ssid)
	return nil
}

// CurrentIP reports the interface's IPv4 address.  No address is not an
// error; the result is empty when the interface is down or unconfigured.
func (m *Manager) CurrentIP(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "ip", "addr", "show", m.iface).Output()
	if err != nil {
		m.log.Errorf("ip addr show: %v", err)
		return "", fmt.Errorf("ip addr show %v: %w", m.iface, err)
	}
	return parseAddr(out), nil
}

func parseSSIDs(out []byte) []string {
	seen := make(map[string]bool)
	var ssids []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		ssids = append(ssids, line)
	}
	sort.Strings(ssids)
	return ssids
}

func parseAddr(out []byte) string {
	if match := inetRE.FindSubmatch(out); match != nil {
		return string(match[1])
	}
	return ""
}

func firstLine(out []byte) []byte {
	if i := bytes.IndexByte(out, '\n'); i >= 0 {
		return out[:i]
	}
	return out
}
