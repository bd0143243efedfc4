// Package testutil builds configuration server entities for tests.
package testutil

import "github.com/HerbHall/cdndash/internal/backend"

// NewDeliveryService returns a valid DeliveryService named name.
// Override individual fields with options.
func NewDeliveryService(name string, opts ...func(*backend.DeliveryService)) backend.DeliveryService {
	ds := backend.DeliveryService{
		Name:      name,
		ClientURL: "http://" + name + ".cdn.example.com/",
		OriginURL: "http://origin.example.com/" + name + "/",
	}
	for _, opt := range opts {
		opt(&ds)
	}
	return ds
}

// WithOrigin sets the origin URL.
func WithOrigin(u string) func(*backend.DeliveryService) {
	return func(ds *backend.DeliveryService) { ds.OriginURL = u }
}

// WithRule appends a header rewrite rule.
func WithRule(header string, op int, value string) func(*backend.DeliveryService) {
	return func(ds *backend.DeliveryService) {
		ds.RewriteRules = append(ds.RewriteRules, backend.RewriteRule{HeaderName: header, Operation: op, Value: value})
	}
}

// NewCacheNode returns a valid mid-tier CacheNode.
func NewCacheNode(name, ip string, opts ...func(*backend.CacheNode)) backend.CacheNode {
	cn := backend.CacheNode{
		Name: name,
		IP:   ip,
		Port: 8080,
		Type: backend.NodeTypeMid,
	}
	for _, opt := range opts {
		opt(&cn)
	}
	return cn
}

// WithParent makes the node an edge below the given mid node.
func WithParent(ip string, port int) func(*backend.CacheNode) {
	return func(cn *backend.CacheNode) {
		cn.Type = backend.NodeTypeEdge
		cn.ParentIP = ip
		cn.ParentPort = port
	}
}

// WithPorts sets the management and Prometheus ports.
func WithPorts(mgmt, prom int) func(*backend.CacheNode) {
	return func(cn *backend.CacheNode) {
		cn.MgmtPort = mgmt
		cn.PromPort = prom
	}
}
