// Package locate finds the lab service on the local network over mDNS.
//
// The service is expected to advertise itself as "_starvation._tcp" with
// optional TXT records such as "path=/" or "version=1.0".
package locate

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/starvectl/internal/logging"
)

const (
	// ServiceType is the mDNS service type the lab service advertises
	ServiceType = "_starvation._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultTimeout is how long a browse lasts
	DefaultTimeout = 5 * time.Second

	// DefaultPort is the service's default HTTP port
	DefaultPort = 5000
)

// Service is one lab service instance found on the network
type Service struct {
	Instance string
	Host     string
	Address  string
	Port     int
	Metadata map[string]string
}

// BaseURL returns the API root of the service
func (s Service) BaseURL() string {
	return "http://" + net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

// String returns a human-readable description of the service
func (s Service) String() string {
	return fmt.Sprintf("%s (%s) at %s", s.Instance, s.Host, s.BaseURL())
}

// Browser browses mDNS for lab service instances
type Browser struct {
	// Timeout bounds a browse
	Timeout time.Duration
}

// NewBrowser creates a Browser with default settings
func NewBrowser() *Browser {
	return &Browser{Timeout: DefaultTimeout}
}

// Browse returns every instance seen before the timeout or ctx expires,
// sorted by instance name
func (b *Browser) Browse(ctx context.Context) ([]Service, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu    sync.Mutex
		found = make(map[string]Service)
	)
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			svc, ok := parseEntry(entry)
			if !ok {
				continue
			}
			logging.Debug("Lab service found", zap.String("instance", svc.Instance), zap.String("url", svc.BaseURL()))
			mu.Lock()
			found[svc.Instance] = svc
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	services := make([]Service, 0, len(found))
	for _, svc := range found {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Instance < services[j].Instance })
	return services, nil
}

// First returns the first instance found, or an error when none answers
// before the timeout
func (b *Browser) First(ctx context.Context) (Service, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Service{}, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	result := make(chan Service, 1)
	go func() {
		for entry := range entries {
			if svc, ok := parseEntry(entry); ok {
				select {
				case result <- svc:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return Service{}, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case svc := <-result:
		return svc, nil
	case <-ctx.Done():
		select {
		case svc := <-result:
			return svc, nil
		default:
		}
		return Service{}, fmt.Errorf("no lab service answered within %s", b.Timeout)
	}
}

// parseEntry converts a zeroconf entry. Entries without an address are
// skipped; IPv4 is preferred over IPv6.
func parseEntry(entry *zeroconf.ServiceEntry) (Service, bool) {
	if entry == nil {
		return Service{}, false
	}

	var addr string
	if len(entry.AddrIPv4) > 0 {
		addr = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		addr = entry.AddrIPv6[0].String()
	}
	if addr == "" {
		return Service{}, false
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		if key != "" {
			metadata[key] = value
		}
	}

	return Service{
		Instance: entry.Instance,
		Host:     strings.TrimSuffix(entry.HostName, "."),
		Address:  addr,
		Port:     port,
		Metadata: metadata,
	}, true
}
