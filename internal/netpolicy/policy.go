// Package netpolicy decides whether a download may use the current
// network connection.
package netpolicy

import (
	"net"
	"strings"
)

// Connectivity is the kind of network link currently available.
type Connectivity string

const (
	ConnectivityNone     Connectivity = "none"
	ConnectivityWifi     Connectivity = "wifi"
	ConnectivityWired    Connectivity = "wired"
	ConnectivityCellular Connectivity = "cellular"
)

// Detector reports the current connectivity. Platform layers inject their
// own implementation; the default inspects local interfaces.
type Detector interface {
	Detect() Connectivity
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Gate applies the wifi-only download policy.
type Gate struct {
	detector Detector
}

// NewGate creates a policy gate using the given detector. A nil detector
// falls back to interface inspection.
func NewGate(d Detector) *Gate {
	if d == nil {
		d = &interfaceDetector{}
	}
	return &Gate{detector: d}
}

// CanDownload reports whether a download may proceed. Wifi and wired
// connections always allow; cellular allows only when the wifi-only
// preference is off; no connectivity never allows.
func (g *Gate) CanDownload(wifiOnly bool) Decision {
	switch g.detector.Detect() {
	case ConnectivityWifi, ConnectivityWired:
		return Decision{Allowed: true}
	case ConnectivityCellular:
		if wifiOnly {
			return Decision{Reason: "downloads are restricted to wifi and a cellular connection is active"}
		}
		return Decision{Allowed: true}
	default:
		return Decision{Reason: "no network connection available"}
	}
}

// interfaceDetector classifies connectivity from local network interfaces.
type interfaceDetector struct{}

func (d *interfaceDetector) Detect() Connectivity {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ConnectivityNone
	}

	best := ConnectivityNone
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		switch classifyInterface(iface.Name) {
		case ConnectivityWired:
			return ConnectivityWired
		case ConnectivityWifi:
			best = ConnectivityWifi
		case ConnectivityCellular:
			if best == ConnectivityNone {
				best = ConnectivityCellular
			}
		}
	}
	return best
}

// classifyInterface guesses the link type from the interface name.
func classifyInterface(name string) Connectivity {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "wl"), strings.HasPrefix(lower, "wifi"),
		strings.HasPrefix(lower, "ath"):
		return ConnectivityWifi
	case strings.HasPrefix(lower, "en"), strings.HasPrefix(lower, "eth"),
		strings.HasPrefix(lower, "em"):
		return ConnectivityWired
	case strings.HasPrefix(lower, "wwan"), strings.HasPrefix(lower, "rmnet"),
		strings.HasPrefix(lower, "ppp"):
		return ConnectivityCellular
	}
	return ConnectivityNone
}
