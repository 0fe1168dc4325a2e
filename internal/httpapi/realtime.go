package httpapi

import (
	"net/http"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/hub"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

// realtimeHandler streams payment events over sockjs. It is mounted behind
// RequireRole, so the request that opened the session carries the user.
// Clients narrow the feed with hub.FilterMessage frames.
func (h *Handler) realtimeHandler() http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		req := session.Request()
		if req == nil {
			_ = session.Close(4001, "unauthorized")
			return
		}
		user, ok := UserFromContext(req.Context())
		if !ok {
			_ = session.Close(4001, "unauthorized")
			return
		}

		client := &hub.Client{ID: uuid.NewString(), UserID: user.UserID, Send: make(chan []byte, 16)}
		h.hub.Register(client)
		defer h.hub.Unregister(client)
		h.logger.Info("realtime client connected", "client_id", client.ID, "user_id", client.UserID)

		go func() {
			for msg := range client.Send {
				if err := session.Send(string(msg)); err != nil {
					return
				}
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				h.logger.Info("realtime client disconnected", "client_id", client.ID)
				return
			}
			filter, ok := hub.ParseFilter([]byte(msg))
			if !ok {
				h.logger.Debug("ignored realtime message", "client_id", client.ID)
				continue
			}
			h.hub.SetFilter(client, filter)
		}
	})
}
