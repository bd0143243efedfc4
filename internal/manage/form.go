package manage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/HerbHall/cdndash/internal/backend"
)

// ErrInvalidForm wraps every problem with submitted form values.
var ErrInvalidForm = errors.New("invalid form")

// Form field names.
const (
	fieldName         = "name"
	fieldClientURL    = "clientURL"
	fieldOriginURL    = "originURL"
	fieldRewriteRules = "rewriteRules"
	fieldIP           = "ip"
	fieldPort         = "port"
	fieldType         = "type"
	fieldParentIP     = "parentIP"
	fieldParentPort   = "parentPort"
	fieldMgmtPort     = "mgmtPort"
	fieldPromPort     = "promPort"
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidForm, err)
}

// serviceFromForm builds a delivery service from form values. Rewrite rules
// are a JSON array in the rewriteRules field.
func serviceFromForm(f url.Values) (backend.DeliveryService, error) {
	ds := backend.DeliveryService{
		Name:      strings.TrimSpace(f.Get(fieldName)),
		ClientURL: strings.TrimSpace(f.Get(fieldClientURL)),
		OriginURL: strings.TrimSpace(f.Get(fieldOriginURL)),
	}
	if raw := strings.TrimSpace(f.Get(fieldRewriteRules)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ds.RewriteRules); err != nil {
			return ds, invalid(fmt.Errorf("rewriteRules: %w", err))
		}
	}
	if err := ds.Validate(); err != nil {
		return ds, invalid(err)
	}
	return ds, nil
}

// nodeFromForm builds a config node from form values.
func nodeFromForm(f url.Values) (backend.CacheNode, error) {
	cn := backend.CacheNode{
		Name:     strings.TrimSpace(f.Get(fieldName)),
		IP:       strings.TrimSpace(f.Get(fieldIP)),
		Type:     strings.TrimSpace(f.Get(fieldType)),
		ParentIP: strings.TrimSpace(f.Get(fieldParentIP)),
	}
	ports := []struct {
		field string
		dst   *int
	}{
		{fieldPort, &cn.Port},
		{fieldParentPort, &cn.ParentPort},
		{fieldMgmtPort, &cn.MgmtPort},
		{fieldPromPort, &cn.PromPort},
	}
	for _, p := range ports {
		raw := strings.TrimSpace(f.Get(p.field))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return cn, invalid(fmt.Errorf("%s %q is not a number", p.field, raw))
		}
		*p.dst = n
	}
	if err := cn.Validate(); err != nil {
		return cn, invalid(err)
	}
	return cn, nil
}

// rulesJSON renders rewrite rules for the rewriteRules textarea.
func rulesJSON(rules []backend.RewriteRule) string {
	if len(rules) == 0 {
		return ""
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
