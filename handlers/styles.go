package handlers

import (
	"net/http"

	"picmagic/dto"
	"picmagic/styles"
)

type StylesHandler struct {
	table *styles.Table
}

func NewStylesHandler(table *styles.Table) *StylesHandler {
	return &StylesHandler{table: table}
}

func (h *StylesHandler) List(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, dto.StylesResponse{Styles: h.table.List()})
}
