package backend

// Rewrite operations for RewriteRule.Operation.
const (
	RewriteOpAdd = iota
	RewriteOpOverwrite
	RewriteOpDelete
)

// Cache node tiers accepted by the configuration server.
const (
	NodeTypeMid  = "Mid"
	NodeTypeEdge = "Edge"
)

// ServiceList is the response of GET ds.
type ServiceList struct {
	Version int      `json:"version"`
	Names   []string `json:"serviceList"`
}

// NodeList is the response of GET cn.
type NodeList struct {
	Version int      `json:"version"`
	Names   []string `json:"NodeList"`
}

// RewriteRule rewrites one HTTP header on the way to the origin.
type RewriteRule struct {
	HeaderName string `json:"headerName"`
	Operation  int    `json:"operation"`
	Value      string `json:"value"`
}

// DeliveryService maps a client-facing URL onto an origin.
type DeliveryService struct {
	Name         string        `json:"name"`
	ClientURL    string        `json:"clientURL"`
	OriginURL    string        `json:"originURL"`
	RewriteRules []RewriteRule `json:"rewriteRules"`
}

// CacheNode is one cache server managed by the configuration server.
type CacheNode struct {
	Name       string `json:"name"`
	IP         string `json:"ip"`
	Port       int    `json:"port"`
	Type       string `json:"type"`
	ParentIP   string `json:"parentIP"`
	ParentPort int    `json:"parentPort"`
	MgmtPort   int    `json:"mgmtPort,omitempty"`
	PromPort   int    `json:"promPort,omitempty"`
}

// InvalidateResult is the backend's answer to an invalidation request.
type InvalidateResult struct {
	// Message is the response body, verbatim.
	Message string
	// StatusID is the request id taken from the Location header, if any.
	StatusID string
}
