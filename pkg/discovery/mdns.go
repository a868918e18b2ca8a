package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/brutella/dnssd"
	dnssdlog "github.com/brutella/dnssd/log"
)

// TXT record keys carrying the service ports.
const (
	txtUDPPort = "udp"
	txtTCPPort = "tcp"
)

// MDNSAdapter announces and discovers servers over mDNS/DNS-SD instead of
// raw broadcasts. The advertised ports travel in the TXT record.
type MDNSAdapter struct {
	ServiceType string
	Domain      string
}

func NewMDNSAdapter() *MDNSAdapter {
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)
	return &MDNSAdapter{ServiceType: DefaultServerType, Domain: DefaultDomain}
}

func (m *MDNSAdapter) Announce(ctx context.Context, serviceInfo ServiceInfo) error {
	text := map[string]string{
		"desc":     "LAN throughput benchmark server",
		txtUDPPort: strconv.Itoa(int(serviceInfo.UDPPort)),
		txtTCPPort: strconv.Itoa(int(serviceInfo.TCPPort)),
	}

	cfg := dnssd.Config{
		Name:   serviceInfo.Name,
		Type:   m.serviceType(serviceInfo.Type),
		Domain: m.domain(serviceInfo.Domain),
		// mdns will multicast to ip address, so we can leave it nil
		IPs:  nil,
		Text: text,
		Port: int(serviceInfo.UDPPort),
	}

	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("failed to create mDNS responder: %w", err)
	}

	if _, err = rp.Add(service); err != nil {
		return fmt.Errorf("failed to add mDNS service: %w", err)
	}

	if err = rp.Respond(ctx); err != nil {
		// Context cancellation is not an error in normal operation
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to respond to mDNS service: %w", err)
	}
	return nil
}

// Discover browses for the service type and returns the first entry that
// carries both ports and an IPv4 address.
func (m *MDNSAdapter) Discover(ctx context.Context) (Endpoint, error) {
	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan Endpoint, 1)
	addFn := func(e dnssd.BrowseEntry) {
		endpoint, ok := endpointFromEntry(e)
		if !ok {
			return
		}
		select {
		case found <- endpoint:
			cancel()
		default:
		}
	}
	rmvFn := func(dnssd.BrowseEntry) {}

	service := fmt.Sprintf("%s.%s.", m.ServiceType, m.Domain)
	err := dnssd.LookupType(lookupCtx, service, addFn, rmvFn)

	select {
	case endpoint := <-found:
		return endpoint, nil
	default:
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Endpoint{}, ctxErr
	}
	if err != nil {
		return Endpoint{}, fmt.Errorf("mDNS lookup failed: %w", err)
	}
	return Endpoint{}, errors.New("mDNS lookup ended without a result")
}

func endpointFromEntry(e dnssd.BrowseEntry) (Endpoint, bool) {
	udp, err := strconv.ParseUint(e.Text[txtUDPPort], 10, 16)
	if err != nil {
		return Endpoint{}, false
	}
	tcp, err := strconv.ParseUint(e.Text[txtTCPPort], 10, 16)
	if err != nil {
		return Endpoint{}, false
	}
	for _, ip := range e.IPs {
		if ip4 := ip.To4(); ip4 != nil {
			return Endpoint{Addr: ip4, UDPPort: uint16(udp), TCPPort: uint16(tcp)}, true
		}
	}
	return Endpoint{}, false
}

func (m *MDNSAdapter) serviceType(t string) string {
	if t != "" {
		return t
	}
	return m.ServiceType
}

func (m *MDNSAdapter) domain(d string) string {
	if d != "" {
		return d
	}
	return m.Domain
}
