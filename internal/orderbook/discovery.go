package orderbook

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/NebulousLabs/go-upnp"
	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
	"github.com/miekg/dns"
)

// discoveryTimeout bounds how long ExternalAddress spends probing the
// local gateway before giving up, matching the teacher's server.go
// bootstrap sequence for NAT traversal at startup.
const discoveryTimeout = 10 * time.Second

// ExternalAddress discovers this node's externally reachable IP, trying
// UPnP first (NebulousLabs/go-upnp) and falling back to NAT-PMP
// (jackpal/go-nat-pmp) against the LAN gateway jackpal/gateway finds —
// the same two-protocol fallback teacher's server.go runs before
// advertising a listen address to peers.
func ExternalAddress(ctx context.Context) (net.IP, error) {
	upnpCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	d, err := upnp.DiscoverCtx(upnpCtx)
	if err == nil {
		ipStr, err := d.ExternalIP()
		if err == nil {
			if ip := net.ParseIP(ipStr); ip != nil {
				return ip, nil
			}
		}
	}

	gatewayIP, err := gateway.DiscoverGateway()
	if err != nil {
		return nil, fmt.Errorf("orderbook: discover gateway: %w", err)
	}

	client := natpmp.NewClient(gatewayIP)
	resp, err := client.GetExternalAddress()
	if err != nil {
		return nil, fmt.Errorf("orderbook: nat-pmp external address: %w", err)
	}

	ip := net.IPv4(resp.ExternalIPAddress[0], resp.ExternalIPAddress[1],
		resp.ExternalIPAddress[2], resp.ExternalIPAddress[3])
	return ip, nil
}

// ResolveBootstrapPeers looks up TXT records at domain for a seed list of
// peer addresses, the DNS-seed bootstrap pattern full nodes use to find
// initial peers without a hardcoded list.
func ResolveBootstrapPeers(ctx context.Context, domain, dnsServer string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeTXT)

	c := new(dns.Client)
	c.Timeout = discoveryTimeout

	resp, _, err := c.ExchangeContext(ctx, m, dnsServer)
	if err != nil {
		return nil, fmt.Errorf("orderbook: resolve bootstrap peers at %s: %w", domain, err)
	}

	var peers []string
	for _, ans := range resp.Answer {
		if txt, ok := ans.(*dns.TXT); ok {
			peers = append(peers, txt.Txt...)
		}
	}
	return peers, nil
}
