package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"chatrelay/internal/models"
	"chatrelay/internal/store"
)

type MessageHandler struct {
	Store store.Store
}

type SendMessageRequest struct {
	ChatID   int    `json:"chat_id"`
	SenderID int    `json:"sender_id"`
	Content  string `json:"content"`
}

// GetChatMessages lists a chat's messages in chronological order, then
// explicitly advances any still-sent message to delivered. The listing itself
// is side-effect free; the advance is a separate store operation and the
// response reflects it, so a second fetch observes delivered.
func (h *MessageHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chatID, err := strconv.Atoi(vars["chatId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	messages, err := h.Store.GetChatMessages(chatID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	advanced, err := h.Store.MarkChatDelivered(chatID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i := range messages {
		if lo.Contains(advanced, messages[i].ID) {
			messages[i].Status = models.StatusDelivered
		}
	}

	if messages == nil {
		messages = []models.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

// SendMessage is the direct creation path; live sends go through the relay.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	message, err := h.Store.SaveMessage(req.ChatID, req.SenderID, req.Content, models.TypeText)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, message)
}
