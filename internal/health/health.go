package health

import (
	"net/http"

	"papertrader/internal/httputil"
)

func Handler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
