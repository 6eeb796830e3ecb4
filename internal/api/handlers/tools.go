package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/movewise/internal/api"
	"github.com/cloo-solutions/movewise/internal/voice"
)

type ToolCaller interface {
	Call(ctx context.Context, name string, args voice.Args) (string, error)
}

type ToolHandler struct {
	tools ToolCaller
}

func NewToolHandler(tools ToolCaller) *ToolHandler {
	return &ToolHandler{tools: tools}
}

type ToolResponse struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// Call runs one voice tool. The body is a flat JSON object of arguments and may be empty.
func (h *ToolHandler) Call(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args := voice.Args{}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && err != io.EOF {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.tools.Call(r.Context(), name, args)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ToolResponse{Tool: name, Result: result})
}

// List returns the names of the available tools.
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, voice.Names())
}
