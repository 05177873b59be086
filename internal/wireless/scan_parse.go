package wireless

import "strings"

// parseIwinfoScan extracts SSIDs from `iwinfo <iface> scan` output. Each
// entry looks like:
//
//	Cell 01 - Address: AA:BB:CC:DD:EE:FF
//	          ESSID: "my-network"
//	          Encryption: WPA2 PSK (CCMP)
//
// Only the ESSID line matters for candidate selection; encryption detail is
// not modeled since nakd only ever associates with stored PSK credentials.
func parseIwinfoScan(output string) []Network {
	var networks []Network
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ESSID:") {
			continue
		}
		ssid := strings.TrimPrefix(line, "ESSID:")
		ssid = strings.TrimSpace(ssid)
		ssid = strings.Trim(ssid, `"`)
		if ssid == "" {
			continue
		}
		networks = append(networks, Network{SSID: ssid})
	}
	return networks
}
