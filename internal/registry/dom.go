package registry

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// flatNode is a node in document order with the index of the last node of
// its subtree.
type flatNode struct {
	node *html.Node
	end  int
}

// flatten lists every node under root in document (pre-)order.
func flatten(root *html.Node) []flatNode {
	var out []flatNode
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		i := len(out)
		out = append(out, flatNode{node: n})
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		out[i].end = len(out) - 1
	}
	visit(root)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

// normalizeSpace collapses runs of whitespace, including non-breaking spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textContent returns the whitespace-normalized text under n, ignoring
// script and style content.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if isElement(n, atom.Script) || isElement(n, atom.Style) || isElement(n, atom.Noscript) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return normalizeSpace(b.String())
}

// insideIgnored reports whether a text node belongs to script or style.
func insideIgnored(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, atom.Script) || isElement(p, atom.Style) || isElement(p, atom.Noscript) {
			return true
		}
	}
	return false
}

func ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, a) {
			return p
		}
	}
	return nil
}

func findElementByID(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	for _, f := range flatten(root) {
		if f.node.Type == html.ElementNode && attr(f.node, "id") == id {
			return f.node
		}
	}
	return nil
}

// isTextInput reports whether n is a visible input a licence number can be typed into.
func isTextInput(n *html.Node) bool {
	if !isElement(n, atom.Input) || hasAttr(n, "disabled") {
		return false
	}
	switch strings.ToLower(attr(n, "type")) {
	case "", "text", "search", "tel", "number":
		return true
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
