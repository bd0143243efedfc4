// Package manage serves the create, read, update and delete pages for
// delivery services and config nodes.
package manage

// Kind is the entity a page manages.
type Kind string

const (
	KindService Kind = "ds"
	KindNode    Kind = "cn"
)

// Action is what a page does with its entity.
type Action string

const (
	ActionGet    Action = "get"
	ActionAdd    Action = "add"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Page is one management page, served at /{File}.
type Page struct {
	File   string
	Title  string
	Kind   Kind
	Action Action
}

// Pages lists every management page.
var Pages = []Page{
	{File: "getDeliveryService.html", Title: "Get Delivery Service", Kind: KindService, Action: ActionGet},
	{File: "addDeliveryService.html", Title: "Add Delivery Service", Kind: KindService, Action: ActionAdd},
	{File: "modifyDeliveryService.html", Title: "Modify Delivery Service", Kind: KindService, Action: ActionModify},
	{File: "deleteDeliveryService.html", Title: "Delete Delivery Service", Kind: KindService, Action: ActionDelete},
	{File: "getConfigNode.html", Title: "Get Config Node", Kind: KindNode, Action: ActionGet},
	{File: "addConfigNode.html", Title: "Add Config Node", Kind: KindNode, Action: ActionAdd},
	{File: "modifyConfigNode.html", Title: "Modify Config Node", Kind: KindNode, Action: ActionModify},
	{File: "deleteConfigNode.html", Title: "Delete Config Node", Kind: KindNode, Action: ActionDelete},
}

// Lookup finds a page by file name.
func Lookup(file string) (Page, bool) {
	for _, p := range Pages {
		if p.File == file {
			return p, true
		}
	}
	return Page{}, false
}

// Editable reports whether the page shows the full entity form.
func (p Page) Editable() bool {
	return p.Action == ActionAdd || p.Action == ActionModify
}

// Submits reports whether the page accepts POST.
func (p Page) Submits() bool {
	return p.Action != ActionGet
}
