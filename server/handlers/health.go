package handlers

import "net/http"

// HandleHealth is a simple health check handler that returns "ok".
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

// HandleRoot answers GET / with a greeting so a browser pointed at the
// server shows it is up.
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeText(w, http.StatusOK, "Hello world!")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
