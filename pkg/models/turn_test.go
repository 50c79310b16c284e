package models

import (
	"sort"
	"sync"
	"testing"
)

func TestNewTurn(t *testing.T) {
	turn := NewTurn("bot-1", "U123456789", SenderUser, KindText, "hello")

	if turn.TenantID != "bot-1" {
		t.Errorf("TenantID = %s, want bot-1", turn.TenantID)
	}

	if turn.UserID != "U123456789" {
		t.Errorf("UserID = %s, want U123456789", turn.UserID)
	}

	if turn.ConversationKey != "bot-1#U123456789" {
		t.Errorf("ConversationKey = %s, want bot-1#U123456789", turn.ConversationKey)
	}

	if turn.TurnID == "" {
		t.Error("TurnID should not be empty")
	}

	if len(turn.TurnID) != 26 {
		t.Errorf("TurnID should be a 26 character ULID, got %q", turn.TurnID)
	}

	if turn.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestTurnConstructors(t *testing.T) {
	tests := []struct {
		name        string
		turn        *Turn
		wantSender  string
		wantKind    string
		wantContent string
	}{
		{"text turn", NewTextTurn("bot", "U1", "hello"), SenderUser, KindText, "hello"},
		{"image turn", NewImageTurn("bot", "U1"), SenderUser, KindImage, ImagePlaceholder},
		{"assistant turn", NewAssistantTurn("bot", "U1", "hi there"), SenderAssistant, KindText, "hi there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.turn.Sender != tt.wantSender {
				t.Errorf("Sender = %s, want %s", tt.turn.Sender, tt.wantSender)
			}
			if tt.turn.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", tt.turn.Kind, tt.wantKind)
			}
			if tt.turn.Content != tt.wantContent {
				t.Errorf("Content = %s, want %s", tt.turn.Content, tt.wantContent)
			}
		})
	}
}

func TestTurnIDsSortByCreation(t *testing.T) {
	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, NewTextTurn("bot", "U1", "x").TurnID)
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("TurnIDs generated in sequence should sort in creation order")
	}
}

func TestTurnIDsUniqueUnderConcurrency(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewTextTurn("bot", "U1", "x").TurnID
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate TurnID %s", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()
}

func TestTurnIsText(t *testing.T) {
	if !NewTextTurn("bot", "U1", "a").IsText() {
		t.Error("text turn should report IsText")
	}
	if NewImageTurn("bot", "U1").IsText() {
		t.Error("image turn should not report IsText")
	}
}

func TestDefaultDisplayName(t *testing.T) {
	tests := []struct {
		userID string
		want   string
	}{
		{"U4af4980629", "User U4af4"},
		{"U12", "User U12"},
		{"", "User "},
		{"ユーザー名前です", "User ユーザー名"},
	}

	for _, tt := range tests {
		if got := DefaultDisplayName(tt.userID); got != tt.want {
			t.Errorf("DefaultDisplayName(%q) = %q, want %q", tt.userID, got, tt.want)
		}
	}
}

func TestConstants(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{SenderUser, "user"},
		{SenderAssistant, "assistant"},
		{KindText, "text"},
		{KindImage, "image"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("constant = %s, want %s", tt.got, tt.want)
		}
	}
}
