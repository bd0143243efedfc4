package dashboard

import "strings"

// Button is one navigation control on the dashboard.
type Button struct {
	ID    string
	Label string
	Page  string
}

// Buttons lists the navigation controls in display order, delivery services
// first. Pages are relative to the dashboard root.
var Buttons = []Button{
	{ID: "getDS", Label: "Get Delivery Service", Page: "getDeliveryService.html"},
	{ID: "addDS", Label: "Add Delivery Service", Page: "addDeliveryService.html"},
	{ID: "modDS", Label: "Modify Delivery Service", Page: "modifyDeliveryService.html"},
	{ID: "delDS", Label: "Delete Delivery Service", Page: "deleteDeliveryService.html"},
	{ID: "getCN", Label: "Get Config Node", Page: "getConfigNode.html"},
	{ID: "addCN", Label: "Add Config Node", Page: "addConfigNode.html"},
	{ID: "modCN", Label: "Modify Config Node", Page: "modifyConfigNode.html"},
	{ID: "delCN", Label: "Delete Config Node", Page: "deleteConfigNode.html"},
}

// Radio is the radio group whose selection the button carries to its page.
func (b Button) Radio() string {
	if strings.HasSuffix(b.ID, "DS") {
		return RadioServices
	}
	return RadioNodes
}

// ButtonFor looks up a navigation button by id.
func ButtonFor(id string) (Button, bool) {
	for _, b := range Buttons {
		if b.ID == id {
			return b, true
		}
	}
	return Button{}, false
}

// PageFor returns the page a navigation button leads to.
func PageFor(buttonID string) (string, bool) {
	b, ok := ButtonFor(buttonID)
	return b.Page, ok
}
