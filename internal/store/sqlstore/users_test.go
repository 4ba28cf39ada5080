package sqlstore

import (
	"errors"
	"strings"
	"testing"

	"chatrelay/internal/models"
	"chatrelay/internal/store"
)

func TestCreateUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	createTestUser(t, "testuser")

	// Duplicate username
	err := testStore.CreateUser(&models.User{Username: "testuser", Email: "other@example.com", Password: "pass"})
	if err == nil {
		t.Error("Expected error when creating duplicate username, got nil")
	}

	// Duplicate email
	err = testStore.CreateUser(&models.User{Username: "other", Email: "testuser@example.com", Password: "pass"})
	if err == nil {
		t.Error("Expected error when creating duplicate email, got nil")
	}
}

func TestSparseEmailUniqueness(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	// Many users without an email must coexist.
	for _, name := range []string{"noemail1", "noemail2", "noemail3"} {
		err := testStore.CreateUser(&models.User{Username: name, Password: "pass"})
		if err != nil {
			t.Errorf("Failed to create user %s without email: %v", name, err)
		}
	}
}

func TestGetUserByUsername(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	created := createTestUser(t, "testuser")

	user, err := testStore.GetUserByUsername("testuser")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("Expected user ID %d, got %d", created.ID, user.ID)
	}

	_, err = testStore.GetUserByUsername("nonexistent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for nonexistent user, got %v", err)
	}
}

func TestGetOrCreateUserByName(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	first, err := testStore.GetOrCreateUserByName("  Alice ")
	if err != nil {
		t.Fatalf("GetOrCreateUserByName failed: %v", err)
	}
	if first.Username != "alice" {
		t.Errorf("Expected normalized username 'alice', got %q", first.Username)
	}
	if !strings.Contains(first.Email, "alice_") || !strings.HasSuffix(first.Email, "@chat.local") {
		t.Errorf("Expected synthesized placeholder email, got %q", first.Email)
	}

	// Idempotent: same trimmed, case-folded name returns the same user.
	second, err := testStore.GetOrCreateUserByName("ALICE")
	if err != nil {
		t.Fatalf("GetOrCreateUserByName failed on second call: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same user ID %d, got %d", first.ID, second.ID)
	}
}

func TestGetOrCreateUserByNameBlank(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	_, err := testStore.GetOrCreateUserByName("   ")
	if !errors.Is(err, store.ErrBlankUsername) {
		t.Errorf("Expected ErrBlankUsername, got %v", err)
	}
}

func TestSetOnline(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := createTestUser(t, "testuser")

	if err := testStore.SetOnline(user.ID, true); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	got, _ := testStore.GetUserByID(user.ID)
	if !got.Online {
		t.Error("Expected user to be online")
	}

	if err := testStore.SetOnline(user.ID, false); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	got, _ = testStore.GetUserByID(user.ID)
	if got.Online {
		t.Error("Expected user to be offline")
	}
}

func TestListUsers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	createTestUser(t, "alice")
	createTestUser(t, "bob")

	users, err := testStore.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.Password != "" {
			t.Errorf("Expected password to be omitted for %s", u.Username)
		}
	}
}
