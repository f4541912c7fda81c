package ai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/realtime"
	"mahlzeit/utils"
)

const maxLabelBytes = 10 << 20

type Handlers struct {
	svc   *Service
	delay time.Duration
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc, delay: DebounceDelay}
}

func unavailable(w http.ResponseWriter) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"available": false, "result": nil})
}

func respondResult(w http.ResponseWriter, res Result) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"available": true,
		"result":    res.Candidate,
		"fallback":  res.Fallback,
	})
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"available": h.svc.Available()})
}

func (h *Handlers) Text(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.svc.Available() {
		unavailable(w)
		return
	}
	respondResult(w, h.svc.LookupText(r.Context(), r.URL.Query().Get("q")))
}

func (h *Handlers) Label(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.svc.Available() {
		unavailable(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxLabelBytes)
	if err := r.ParseMultipartForm(maxLabelBytes); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Bild zu groß oder ungültig")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Kein Bild übermittelt")
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Bild konnte nicht gelesen werden")
		return
	}
	respondResult(w, h.svc.ScanLabel(r.Context(), raw))
}

type liveReply struct {
	Query     string     `json:"query"`
	Available bool       `json:"available"`
	Result    *Candidate `json:"result"`
	Fallback  bool       `json:"fallback,omitempty"`
}

// LiveSearch reads one text frame per keystroke snapshot. Only the last
// snapshot after the debounce delay is looked up; closing the socket
// cancels anything pending.
func (h *Handlers) LiveSearch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := realtime.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(v liveReply) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			log.Debug().Err(err).Msg("live search write")
		}
	}

	if !h.svc.Available() {
		write(liveReply{Available: false})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	debounce := NewDebouncer(h.delay)
	defer func() {
		debounce.Stop()
		cancel()
	}()

	conn.SetReadLimit(1024)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("live search read")
			}
			return
		}
		q := strings.TrimSpace(string(msg))
		if !ShouldSearch(q) {
			debounce.Stop()
			continue
		}
		debounce.Schedule(ctx, func(ctx context.Context) {
			res := h.svc.LookupText(ctx, q)
			if ctx.Err() != nil {
				return
			}
			write(liveReply{Query: q, Available: true, Result: res.Candidate, Fallback: res.Fallback})
		})
	}
}
