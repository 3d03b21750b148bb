package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iwanyu/marketplace/internal/service"
)

// keepAliveInterval комментарий-пинг для прокси, рвущих молчащие соединения
const keepAliveInterval = 25 * time.Second

type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id" validate:"required,gt=0"`
	Text       string `json:"text" validate:"required,max=4000"`
}

type AnnouncementRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type UnreadResponse struct {
	Unread int `json:"unread"`
}

func SendMessageHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.SendMessageHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		var req SendMessageRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		msg, err := messages.Send(r.Context(), p, req.ReceiverID, req.Text)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, msg)
	}
}

// AnnounceHandler объявление администратора всем продавцам
func AnnounceHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.AnnounceHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		var req AnnouncementRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		msg, err := messages.Announce(r.Context(), p, req.Text)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, msg)
	}
}

func ConversationHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ConversationHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		peerID, err := idParam(r, "peerID")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		list, err := messages.Conversation(r.Context(), p, peerID)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func InboxHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.InboxHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		list, err := messages.Inbox(r.Context(), p)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

// ContactsHandler администраторы, доступные для переписки
func ContactsHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ContactsHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		list, err := messages.Contacts(r.Context(), p)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func MarkReadHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.MarkReadHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		if err := messages.MarkRead(r.Context(), p, id); err != nil {
			handleServiceError(log, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func UnreadCountHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.UnreadCountHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		n, err := messages.UnreadCount(r.Context(), p)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, UnreadResponse{Unread: n})
	}
}

// MessageStreamHandler поток новых сообщений получателя в формате Server-Sent Events.
// Токен можно передать в query access_token: EventSource не умеет заголовки
func MessageStreamHandler(log *slog.Logger, messages service.MessageServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.MessageStreamHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(log, w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		ch, err := messages.Subscribe(r.Context(), p)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}

		// поток живёт дольше WriteTimeout сервера
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		log.Info("stream opened", slog.Int64("profileID", p.Profile.ID))
		defer log.Info("stream closed", slog.Int64("profileID", p.Profile.ID))

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case msg, open := <-ch:
				if !open {
					return
				}
				data, err := json.Marshal(msg)
				if err != nil {
					log.Error("failed to marshal message", slog.Any("error", err))
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %d\nevent: message\ndata: %s\n\n", msg.ID, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
