package backend

import (
	"errors"
	"fmt"
	"net"
)

// Validate reports the first missing or malformed field, mirroring the checks
// the configuration server applies on POST ds.
func (ds *DeliveryService) Validate() error {
	if ds.Name == "" || ds.ClientURL == "" || ds.OriginURL == "" {
		return errors.New("name, clientURL and originURL are required")
	}
	for i, rule := range ds.RewriteRules {
		if rule.HeaderName == "" {
			return fmt.Errorf("rewrite rule %d: headerName is required", i+1)
		}
		if rule.Operation < RewriteOpAdd || rule.Operation > RewriteOpDelete {
			return fmt.Errorf("rewrite rule %d: operation %d out of range", i+1, rule.Operation)
		}
	}
	return nil
}

// Validate reports the first missing or malformed field of a cache node.
func (cn *CacheNode) Validate() error {
	if cn.Name == "" || cn.IP == "" || cn.Port == 0 || cn.Type == "" {
		return errors.New("name, ip, port and type are required")
	}
	if cn.Type != NodeTypeMid && cn.Type != NodeTypeEdge {
		return fmt.Errorf("type must be %q or %q", NodeTypeMid, NodeTypeEdge)
	}
	if net.ParseIP(cn.IP) == nil {
		return fmt.Errorf("ip %q is not a valid address", cn.IP)
	}
	if cn.ParentIP != "" && net.ParseIP(cn.ParentIP) == nil {
		return fmt.Errorf("parentIP %q is not a valid address", cn.ParentIP)
	}
	ports := []struct {
		name string
		val  int
	}{
		{"port", cn.Port},
		{"parentPort", cn.ParentPort},
		{"mgmtPort", cn.MgmtPort},
		{"promPort", cn.PromPort},
	}
	for _, p := range ports {
		if p.val < 0 || p.val > 65535 {
			return fmt.Errorf("%s %d out of range", p.name, p.val)
		}
	}
	return nil
}
