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

type ChatHandler struct {
	Store store.Store
}

type CreateChatRequest struct {
	Participants []int  `json:"participants"`
	IsGroup      bool   `json:"is_group"`
	GroupName    string `json:"group_name"`
}

type CreateGroupRequest struct {
	Participants []int  `json:"participants"`
	GroupName    string `json:"group_name"`
	CreatorID    int    `json:"creator_id"`
}

// CreateChat creates a chat, or for two-party requests returns the existing
// chat between that pair.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Participants) < 2 {
		respondError(w, http.StatusBadRequest, "a chat needs at least two participants")
		return
	}

	if !req.IsGroup && len(req.Participants) == 2 {
		chat, created, err := h.Store.GetOrCreateDirectChat(req.Participants[0], req.Participants[1])
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		code := http.StatusOK
		if created {
			code = http.StatusCreated
		}
		respondJSON(w, code, chat)
		return
	}

	chat, err := h.Store.CreateChat(req.Participants, req.IsGroup, req.GroupName)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	participants := lo.Uniq(append(req.Participants, req.CreatorID))
	chat, err := h.Store.CreateChat(participants, true, req.GroupName)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.Atoi(vars["userId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	chats, err := h.Store.GetUserChats(userID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	respondJSON(w, http.StatusOK, chats)
}
