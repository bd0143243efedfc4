package dashboard

import (
	"fmt"
	"html"
	"strings"
	"text/tabwriter"
)

// List describes one of the two tables on the dashboard.
type List struct {
	Label  string // used in error messages
	Target string // container id
	Header string // header of the name column
	Radio  string // radio group name
	Path   string // endpoint relative to the API base
}

var (
	// Services is the delivery service table.
	Services = List{Label: "Delivery Services", Target: TargetServices, Header: "Name", Radio: RadioServices, Path: "ds"}
	// Nodes is the config node table.
	Nodes = List{Label: "Config Nodes", Target: TargetNodes, Header: "Node Name", Radio: RadioNodes, Path: "cn"}
)

// Markup turns list contents and load failures into content for a View.
type Markup interface {
	Table(l List, names []string) string
	LoadError(l List, url string, err error) string
	// HTML reports whether the output is markup (SetHTML) or text (SetText).
	HTML() bool
}

// HTMLMarkup renders tables and errors as HTML fragments.
type HTMLMarkup struct{}

func (HTMLMarkup) HTML() bool { return true }

// Table renders one header row and one row per name, each with a radio
// control carrying the name. Names are escaped.
func (HTMLMarkup) Table(l List, names []string) string {
	var b strings.Builder
	b.WriteString("<table border='1'><tr><th></th><th>")
	b.WriteString(html.EscapeString(l.Header))
	b.WriteString("</th></tr>")
	radio := html.EscapeString(l.Radio)
	for _, name := range names {
		esc := html.EscapeString(name)
		fmt.Fprintf(&b, `<tr><td><input type="radio" name="%s" value="%s"></td><td>%s</td></tr>`, radio, esc, esc)
	}
	b.WriteString("</table>")
	return b.String()
}

func (HTMLMarkup) LoadError(l List, url string, err error) string {
	return "<p>" + html.EscapeString(LoadErrorText(l, url, err)) + "</p>"
}

// TextMarkup renders tables as aligned plain text.
type TextMarkup struct{}

func (TextMarkup) HTML() bool { return false }

func (TextMarkup) Table(l List, names []string) string {
	var b strings.Builder
	b.WriteString(l.Label + "\n")
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\t%s\n", strings.ToUpper(l.Header))
	for i, name := range names {
		fmt.Fprintf(tw, "%d\t%s\n", i+1, name)
	}
	_ = tw.Flush()
	return b.String()
}

func (TextMarkup) LoadError(l List, url string, err error) string {
	return LoadErrorText(l, url, err)
}

// LoadErrorText is the message shown when a list cannot be loaded.
func LoadErrorText(l List, url string, err error) string {
	return fmt.Sprintf("Error loading %s from %s. %v", l.Label, url, err)
}
