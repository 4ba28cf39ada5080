package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"chatrelay/internal/models"
)

func TestSendMessage(t *testing.T) {
	store := newTestStore(t)
	handler := &MessageHandler{Store: store}
	users := createUsers(t, store, "alice", "bob")
	chat, _, _ := store.GetOrCreateDirectChat(users[0].ID, users[1].ID)

	rr := postJSON(t, handler.SendMessage, "/api/messages", SendMessageRequest{
		ChatID:   chat.ID,
		SenderID: users[0].ID,
		Content:  "hi",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("send message returned %v, want %v (%s)", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var msg models.Message
	json.Unmarshal(rr.Body.Bytes(), &msg)
	if msg.Status != models.StatusSent {
		t.Errorf("Expected status 'sent', got %q", msg.Status)
	}

	rr = postJSON(t, handler.SendMessage, "/api/messages", SendMessageRequest{
		ChatID:   chat.ID,
		SenderID: users[0].ID,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("send empty message returned %v, want %v", rr.Code, http.StatusBadRequest)
	}
}

func TestGetChatMessagesAdvancesDelivery(t *testing.T) {
	store := newTestStore(t)
	handler := &MessageHandler{Store: store}
	users := createUsers(t, store, "alice", "bob")
	chat, _, _ := store.GetOrCreateDirectChat(users[0].ID, users[1].ID)

	if _, err := store.SaveMessage(chat.ID, users[0].ID, "hi", ""); err != nil {
		t.Fatal(err)
	}

	vars := map[string]string{"chatId": itoa(chat.ID)}

	// The fetch itself reports the advanced status.
	rr := getWithVars(t, handler.GetChatMessages, "/api/messages/1", vars)
	if rr.Code != http.StatusOK {
		t.Fatalf("get messages returned %v, want %v (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	var messages []models.Message
	json.Unmarshal(rr.Body.Bytes(), &messages)
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	if messages[0].Status != models.StatusDelivered {
		t.Errorf("Expected fetch to advance status to 'delivered', got %q", messages[0].Status)
	}

	// And a subsequent fetch observes delivered from storage.
	rr = getWithVars(t, handler.GetChatMessages, "/api/messages/1", vars)
	json.Unmarshal(rr.Body.Bytes(), &messages)
	if messages[0].Status != models.StatusDelivered {
		t.Errorf("Expected persisted status 'delivered', got %q", messages[0].Status)
	}
}
