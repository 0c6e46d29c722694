// Package discovery advertises the remote's HTTP API on the local network so
// companion apps can find it. It does not look for TVs.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type published for the HTTP API.
const ServiceType = "_tvremote._tcp"

// Metadata holds the TXT record fields for the service.
type Metadata struct {
	DisplayName string // e.g. "Living room remote"
	LanHost     string // e.g. "pi.local"
	TVAddress   string // paired TV, empty when unpaired
}

// Config holds configuration for the mDNS advertiser.
type Config struct {
	InstanceName string // Name of the service instance
	Port         int    // HTTP API port
	Iface        string // Optional: bind a single interface by name
	Meta         Metadata
}

// Advertiser manages the mDNS service registration.
type Advertiser struct {
	servers []*mdns.Server
	cfg     Config
}

// NewAdvertiser creates a new advertiser with the given config.
func NewAdvertiser(cfg Config) (*Advertiser, error) {
	if cfg.InstanceName == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port must be in 1..65535, got %d", cfg.Port)
	}

	return &Advertiser{
		cfg: cfg,
	}, nil
}

// TXT returns the TXT records published with the service.
func (a *Advertiser) TXT() []string {
	txt := []string{
		"role=remote",
		"apiPort=" + strconv.Itoa(a.cfg.Port),
	}
	if a.cfg.Meta.LanHost != "" {
		txt = append(txt, "lanHost="+a.cfg.Meta.LanHost)
	}
	if a.cfg.Meta.DisplayName != "" {
		txt = append(txt, "displayName="+a.cfg.Meta.DisplayName)
	}
	if a.cfg.Meta.TVAddress != "" {
		txt = append(txt, "tv="+a.cfg.Meta.TVAddress)
	}
	return txt
}

// Start begins advertising the service. The mdns library answers queries
// from its own goroutines.
func (a *Advertiser) Start() error {
	service, err := mdns.NewMDNSService(
		a.cfg.InstanceName,
		ServiceType,
		"",
		"",
		a.cfg.Port,
		nil, // IPs (nil = all interfaces)
		a.TXT(),
	)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}

	var servers []*mdns.Server
	for _, iface := range ifaces {
		if a.cfg.Iface != "" && iface.Name != a.cfg.Iface {
			continue
		}
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagMulticast) == 0 {
			continue
		}

		server, err := mdns.NewServer(&mdns.Config{
			Zone:  service,
			Iface: &iface,
		})
		if err != nil {
			slog.Warn("mdns interface bind failed", "iface", iface.Name, "error", err)
			continue
		}
		slog.Info("mdns interface bound", "iface", iface.Name)
		servers = append(servers, server)
	}

	// Fall back to the default interface when nothing was named.
	if len(servers) == 0 && a.cfg.Iface == "" {
		server, err := mdns.NewServer(&mdns.Config{Zone: service})
		if err != nil {
			return fmt.Errorf("start mdns server: %w", err)
		}
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		return fmt.Errorf("no mdns interfaces bound (iface=%q)", a.cfg.Iface)
	}

	a.servers = servers
	return nil
}

// Stop shuts down the mDNS advertisement.
func (a *Advertiser) Stop() error {
	var firstErr error
	for _, server := range a.servers {
		if server == nil {
			continue
		}
		if err := server.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.servers = nil
	return firstErr
}
