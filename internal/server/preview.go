package server

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// liveReloadScript reloads the preview whenever the page changes.
const liveReloadScript = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (msg) {
    var ev = JSON.parse(msg.data);
    if (ev.kind !== "hello") { location.reload(); }
  };
})();`

// injectLiveReload appends the live-reload script to the document body.
func injectLiveReload(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		return "", errors.New("preview document has no body")
	}
	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "data-live-reload", Val: "true"}},
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: liveReloadScript})
	body.AppendChild(script)

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return "", err
	}
	return b.String(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// sameHost reports whether origin names host.
func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

func requestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
