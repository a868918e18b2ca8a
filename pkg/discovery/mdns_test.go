package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/brutella/dnssd"
	"github.com/stretchr/testify/assert"
)

func TestEndpointFromEntry(t *testing.T) {
	entry := dnssd.BrowseEntry{
		IPs:  []net.IP{net.ParseIP("fe80::1"), net.IPv4(192, 168, 1, 20)},
		Text: map[string]string{"udp": "40001", "tcp": "40002"},
	}
	endpoint, ok := endpointFromEntry(entry)
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.20", endpoint.Addr.String())
	assert.Equal(t, uint16(40001), endpoint.UDPPort)
	assert.Equal(t, uint16(40002), endpoint.TCPPort)

	entry.Text = map[string]string{"udp": "40001"}
	_, ok = endpointFromEntry(entry)
	assert.False(t, ok, "entries without both ports are ignored")

	entry.Text = map[string]string{"udp": "40001", "tcp": "40002"}
	entry.IPs = []net.IP{net.ParseIP("fe80::1")}
	_, ok = endpointFromEntry(entry)
	assert.False(t, ok, "entries without an IPv4 address are ignored")
}

func TestMDNSAdapter_AnnounceStop(t *testing.T) {
	// Skip mDNS tests in CI environment as they may be unreliable
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := NewMDNSAdapter()
	done := make(chan error, 1)
	go func() {
		done <- adapter.Announce(ctx, ServiceInfo{Name: "test-instance", UDPPort: 40001, TCPPort: 40002})
	}()

	time.Sleep(50 * time.Millisecond) // Allow some time for the service to be announced
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Logf("Announce returned: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Service announcement did not complete in time")
	}
}

func TestMDNSAdapter_Discover(t *testing.T) {
	// Skip mDNS tests in CI environment as they may be unreliable
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := NewMDNSAdapter()
	adapter.ServiceType = "_lanbench-test._udp"

	go func() {
		_ = adapter.Announce(ctx, ServiceInfo{Name: "test-instance", UDPPort: 40001, TCPPort: 40002})
	}()
	time.Sleep(300 * time.Millisecond)

	queryCtx, queryCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer queryCancel()

	endpoint, err := adapter.Discover(queryCtx)
	if err != nil {
		t.Skipf("mDNS not available on this host: %v", err)
	}
	assert.Equal(t, uint16(40001), endpoint.UDPPort)
	assert.Equal(t, uint16(40002), endpoint.TCPPort)
}
