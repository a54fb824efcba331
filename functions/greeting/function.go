// Package greeting provides the HTML greeting as an HTTP Cloud Function.
package greeting

import (
	"io"
	"net/http"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

// Body matches the greeting served by the main project at "/".
const Body = "<h1>Hello from Simple Java Web App!</h1>\n"

func init() {
	functions.HTTP("Greeting", greetingHandler)
}

func greetingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = io.WriteString(w, Body)
}
