package common

import (
	"encoding/json"
	"log"
	"net/http"
)

type JsonHandlerFunc func(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error

// JsonHandler answers preflight requests, resolves the session and logs
// errors returned by fn. fn writes its own status and body.
func JsonHandler(tracker SessionTracker, fn JsonHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		sessionId := HandleSessionCookie(tracker, w, r)
		w.Header().Set("Content-Type", "application/json")
		if err := fn(w, r, sessionId, json.NewEncoder(w)); err != nil {
			log.Printf("Error handling %s: %v", r.URL.Path, err)
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}

// CorsHeaders echoes the origin of credentialed cross origin requests.
func CorsHeaders(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}
