package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tarkov-debrief/debrief/internal/typeid"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Download handles GET /exports/{exportId}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	exportID := mux.Vars(r)["exportId"]
	if err := typeid.Validate(exportID, typeid.PrefixExport); err != nil {
		http.Error(w, "invalid export id", http.StatusBadRequest)
		return
	}

	e, err := h.store.Get(exportID)
	if err != nil {
		http.Error(w, "export not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, e.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(e.PNG)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(e.PNG); err != nil {
		slog.Error("write export", "export", exportID, "error", err)
	}
}
