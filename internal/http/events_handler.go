package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/cart"
	"github.com/fjod/go_cart/luxecart/internal/profile"
	"github.com/fjod/go_cart/luxecart/internal/realtime"
	"go.uber.org/zap"
)

const eventsHeartbeat = 15 * time.Second

// EventsHandler streams cart changes of a profile as server-sent events. Each
// connection opens its own broadcast so it also sees changes made by this process.
type EventsHandler struct {
	profiles  *profile.Registry
	open      realtime.Opener
	heartbeat time.Duration
	log       *zap.Logger
}

func NewEventsHandler(profiles *profile.Registry, open realtime.Opener, log *zap.Logger) *EventsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventsHandler{
		profiles:  profiles,
		open:      open,
		heartbeat: eventsHeartbeat,
		log:       log.Named("events"),
	}
}

// GET /api/v1/cart/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}
	ctx := r.Context()
	profileID := getProfileID(ctx)
	p := h.profiles.Open(ctx, profileID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates := make(chan cart.SyncMessage, 16)
	bc := realtime.NewBroadcast(realtime.ChannelName, h.open, h.log)
	defer bc.Close()
	stop := bc.Listen(func(payload []byte) {
		msg, err := cart.DecodeSyncMessage(payload)
		if err != nil || msg.Profile != profileID {
			return
		}
		select {
		case updates <- msg:
		default:
			h.log.Debug("slow event consumer, dropping update", zap.String("profile_id", profileID))
		}
	})
	defer stop()

	if err := writeEvent(w, "snapshot", p.Cart.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-updates:
			if err := writeEvent(w, "cart", msg); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
