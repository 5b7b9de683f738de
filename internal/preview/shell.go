package preview

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Shell renders the preview page: the current markup plus a small client
// that forwards clicks over the websocket at wsPath and swaps in replies.
func Shell(title, markup, wsPath string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</title></head><body><div id="refx-root">`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, markup); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</div><script data-ws="`+html.EscapeString(wsPath)+`">`+clientScript+`</script></body></html>`); err != nil {
			return err
		}
		return nil
	})
}

const clientScript = `(function () {
  var root = document.getElementById('refx-root');
  var script = document.currentScript;
  var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  var ws = new WebSocket(proto + '//' + location.host + script.dataset.ws);

  function path(el) {
    var parts = [];
    while (el && el !== root) {
      var i = 0, s = el;
      while ((s = s.previousElementSibling)) i++;
      parts.unshift(i);
      el = el.parentElement;
    }
    return parts.join('/');
  }

  root.addEventListener('click', function (e) {
    if (ws.readyState !== 1) return;
    ws.send(JSON.stringify({event: 'click', path: path(e.target)}));
  });

  ws.onmessage = function (e) {
    var r = JSON.parse(e.data);
    if (r.error) console.warn('refx:', r.error);
    root.innerHTML = r.html;
  };
})();`
