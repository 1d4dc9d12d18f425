package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	hmacext "github.com/alexellis/hmac/v2"
	"github.com/rs/cors"

	"github.com/marcus-crane/jellypresence/playback"
	"github.com/marcus-crane/jellypresence/poller"
	"github.com/marcus-crane/jellypresence/utils"
)

const historyLimit = 7

func renderJSONMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func RegisterRoutes(mux *http.ServeMux, app *App) http.Handler {

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "jellypresence is relaying what's playing on Jellyfin.\nYou can find the source code on <a href=\"https://github.com/marcus-crane/jellypresence\">Github</a>\n")
	})

	mux.HandleFunc("/static/", func(w http.ResponseWriter, r *http.Request) {
		cover := strings.TrimPrefix(r.URL.Path, "/static/")
		// cover.<guid>.<ext>
		coverSegments := strings.Split(cover, ".")
		if len(coverSegments) != 3 || coverSegments[0] != "cover" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		guid, extension := coverSegments[1], coverSegments[2]
		if strings.ContainsAny(guid, `/\`) || strings.ContainsAny(extension, `/\`) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		image, err := utils.LoadCover(app.cfg.Presence.StorageDir, guid, extension)
		if err != nil {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31622400")
		w.Header().Set("Content-Type", fmt.Sprintf("image/%s", extension))
		w.Write(image)
	})

	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, http.StatusOK, "This is the base of the jellypresence API")
	})

	mux.HandleFunc("/api/v1/playing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(app.broadcaster.Current())
	})

	mux.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if app.history == nil {
			json.NewEncoder(w).Encode([]playback.Entry{})
			return
		}
		results, err := app.history.GetHistory(r.Context(), historyLimit)
		if err != nil {
			slog.Error("Failed to load history", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to load history"})
			return
		}
		json.NewEncoder(w).Encode(results)
	})

	mux.HandleFunc("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, http.StatusMethodNotAllowed, "That method is invalid for this endpoint")
			return
		}

		if !verifySignature(w, r, app.cfg.Presence.WebhookSecret) {
			return
		}

		if err := app.refresher.Trigger(); err != nil {
			if errors.Is(err, poller.ErrNotRunning) {
				renderJSONMessage(w, http.StatusConflict, "Polling is not running")
				return
			}
			slog.Error("Failed to trigger poll", slog.String("error", err.Error()))
			renderJSONMessage(w, http.StatusInternalServerError, "Something went wrong trying to refresh")
			return
		}
		renderJSONMessage(w, http.StatusAccepted, "Refresh scheduled")
	})

	mux.HandleFunc("DELETE /api/v1/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		if app.cfg.Presence.WebhookSecret == "" {
			renderJSONMessage(w, http.StatusForbidden, "This endpoint is misconfigured and can not be used currently")
			return
		}
		if !verifySignature(w, r, app.cfg.Presence.WebhookSecret) {
			return
		}
		if app.history == nil {
			renderJSONMessage(w, http.StatusNotFound, "History is not enabled")
			return
		}
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			renderJSONMessage(w, http.StatusBadRequest, "An ID did not appear to be provided")
			return
		}
		if err := app.history.DeleteItem(r.Context(), id); err != nil {
			slog.Error("Failed to delete history entry", slog.Int("id", id), slog.String("error", err.Error()))
			renderJSONMessage(w, http.StatusInternalServerError, "Something went wrong trying to delete that item")
			return
		}
		renderJSONMessage(w, http.StatusOK, "Operation was successfully executed")
	})

	mux.Handle("/events", app.sse)
	mux.Handle("/ws", app.hub)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "X-Signature"},
	})

	return c.Handler(mux)
}

// verifySignature checks X-Signature against an HMAC-SHA256 of the body. An
// empty secret lets every request through. Failures are answered here.
func verifySignature(w http.ResponseWriter, r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	signature := strings.TrimPrefix(r.Header.Get("X-Signature"), "sha256=")
	if signature == "" {
		renderJSONMessage(w, http.StatusUnauthorized, "no signature was provided")
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		renderJSONMessage(w, http.StatusBadRequest, "failed to read request body as part of signature validation")
		return false
	}
	if err := hmacext.Validate(body, fmt.Sprintf("sha256=%s", signature), secret); err != nil {
		slog.Warn("Failed signature validation", slog.String("error", err.Error()))
		renderJSONMessage(w, http.StatusUnauthorized, "signature failed validation")
		return false
	}
	return true
}
