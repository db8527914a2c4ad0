package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	SERVICE_TYPE      = "_stonehub._tcp"
	SERVICE_DOMAIN    = "local."
	DISCOVERY_TIMEOUT = 5 * time.Second
)

// Instance is a stone-hub server found on the local network.
type Instance struct {
	Name     string   `json:"name"`
	Hostname string   `json:"hostname"`
	IP       string   `json:"ip"`
	Port     int      `json:"port"`
	Text     []string `json:"text,omitempty"`
}

func (instance Instance) URL() string {
	return "http://" + net.JoinHostPort(instance.IP, strconv.Itoa(instance.Port)) + "/"
}

// Advertise registers the server over mDNS until ctx is done.
func Advertise(ctx context.Context, name string, port int, text []string, logger *slog.Logger) error {
	server, err := zeroconf.Register(name, SERVICE_TYPE, SERVICE_DOMAIN, port, text, nil)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	defer server.Shutdown()

	if logger != nil {
		logger.Info("Advertising service", "name", name, "service", SERVICE_TYPE, "port", port)
	}

	<-ctx.Done()

	if logger != nil {
		logger.Debug("Service advertisement stopped", "name", name)
	}
	return nil
}

// Discover browses the local network for advertised servers until timeout
// or ctx is done.
func Discover(ctx context.Context, timeout time.Duration, logger *slog.Logger) ([]Instance, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	if timeout <= 0 {
		timeout = DISCOVERY_TIMEOUT
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, SERVICE_TYPE, SERVICE_DOMAIN, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for servers: %w", err)
	}

	var instances []Instance

loop:
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				break loop
			}
			if len(entry.AddrIPv4) == 0 {
				continue
			}

			instance := Instance{
				Name:     entry.Instance,
				Hostname: entry.HostName,
				IP:       entry.AddrIPv4[0].String(),
				Port:     entry.Port,
				Text:     entry.Text,
			}
			if logger != nil {
				logger.Debug("Server discovered", "name", instance.Name, "ip", instance.IP, "port", instance.Port)
			}
			instances = append(instances, instance)
		case <-ctx.Done():
			break loop
		}
	}

	return instances, nil
}
