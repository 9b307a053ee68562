package api

import "net/http"

// clientPlaceholder stands in for the single-file static HTML client
// asset, whose build and minification are an external concern (the
// browser editor, its encryption and its bundling are not part of this
// server).
const clientPlaceholder = `<!DOCTYPE html>
<html>
<head><title>LivePaste</title></head>
<body><p>LivePaste room. The client asset is served by the deployment's
static bundle, not by this binary.</p></body>
</html>`

// serveClientAsset answers GET /room/{id}. A real deployment serves the
// editor's built bundle here (out of scope); this placeholder keeps the
// route live so the rest of the surface can be exercised end to end.
func (a *API) serveClientAsset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(clientPlaceholder))
}
