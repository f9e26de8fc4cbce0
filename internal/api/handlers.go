// Package api exposes the game over HTTP: a command endpoint that speaks the
// same text language as the chat transports, a JSON state endpoint and a
// websocket news feed.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/user/dopewars-engine/internal/game"
	"github.com/user/dopewars-engine/internal/interfaces"
	"github.com/user/dopewars-engine/internal/types"
	"go.uber.org/zap"
)

const maxCommandBytes = 4 << 10

// StatusReader is the read side of the session controller
type StatusReader interface {
	Status(playerID string) (*types.StatusView, error)
}

// CommandRequest is the JSON form of a command submission
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse carries the reply to a JSON submission
type CommandResponse struct {
	PlayerID string `json:"player_id"`
	Reply    string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the player endpoints
type Handler struct {
	commands interfaces.CommandHandler
	status   StatusReader
	logger   *zap.Logger
}

// NewHandler creates the player endpoint handlers
func NewHandler(commands interfaces.CommandHandler, status StatusReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{commands: commands, status: status, logger: logger}
}

// Routes mounts the player endpoints on r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Route("/players/{id}", func(r chi.Router) {
		r.Post("/commands", h.HandleCommand)
		r.Get("/state", h.HandleState)
	})
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// HandleCommand runs one command for the player in the path. The body is
// either plain text or {"command": "..."}; the reply comes back in the
// same form.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request")
		return
	}

	asJSON := isJSON(r.Header.Get("Content-Type"))
	input := string(body)
	if asJSON {
		var req CommandRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		input = req.Command
	}
	input = strings.TrimSpace(input)
	if input == "" {
		writeError(w, http.StatusBadRequest, "empty command")
		return
	}

	h.logger.Debug("HTTP command",
		zap.String("player_id", playerID),
		zap.String("command", input))

	reply := h.commands.Handle(r.Context(), playerID, input)

	if asJSON {
		writeJSON(w, http.StatusOK, CommandResponse{PlayerID: playerID, Reply: reply})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(reply))
}

// HandleState returns the player's status view
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "id")

	view, err := h.status.Status(playerID)
	if errors.Is(err, game.ErrNoSession) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to read status", zap.String("player_id", playerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
