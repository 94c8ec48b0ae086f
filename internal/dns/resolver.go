// Package dns resolves TXT records against an explicit nameserver, bypassing
// local caches that would otherwise hide freshly published records.
package dns

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
)

const defaultPort = "53"

// Resolver queries a single nameserver directly over UDP.
type Resolver struct {
	client *dns.Client
	server string
}

// NewResolver targets the given nameserver ("host" or "host:port"). An empty
// server falls back to the first nameserver in /etc/resolv.conf.
func NewResolver(server string) (*Resolver, error) {
	if server == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("reading resolver config: %w", err)
		}
		if len(conf.Servers) == 0 {
			return nil, fmt.Errorf("no nameservers configured")
		}
		server = conf.Servers[0]
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, defaultPort)
	}
	return &Resolver{client: new(dns.Client), server: server}, nil
}

// LookupTXT returns every TXT value published at fqdn, with multi-string
// records joined into one value.
func (r *Resolver) LookupTXT(ctx context.Context, fqdn string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(fqdn), dns.TypeTXT)

	reply, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("querying %s for %s: %w", r.server, fqdn, err)
	}

	var values []string
	for _, answer := range reply.Answer {
		if txt, ok := answer.(*dns.TXT); ok {
			values = append(values, strings.Join(txt.Txt, ""))
		}
	}
	return values, nil
}
