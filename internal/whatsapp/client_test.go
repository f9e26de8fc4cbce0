package whatsapp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/dopewars-engine/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockCommandHandler is a mock implementation of interfaces.CommandHandler
type MockCommandHandler struct {
	mock.Mock
}

func (m *MockCommandHandler) Handle(ctx context.Context, playerID, input string) string {
	return m.Called(playerID, input).String(0)
}

// MockMessageSender is a mock implementation of interfaces.MessageSender
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(phoneNumber, recipient, message string) (string, error) {
	args := m.Called(phoneNumber, recipient, message)
	return args.String(0), args.Error(1)
}

func TestCommandText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		isGroup bool
		want    string
		ok      bool
	}{
		{"private command", "/status", false, "/status", true},
		{"private with spaces", "  /buy weed 10 ", false, "/buy weed 10", true},
		{"private chatter", "hey there", false, "", false},
		{"bare slash", "/", false, "", false},
		{"group command", "/ travel miami", true, "/travel miami", true},
		{"group without space", "/travel miami", true, "", false},
		{"group chatter", "lol", true, "", false},
		{"empty", "", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := commandText(tt.content, tt.isGroup)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouterRoute(t *testing.T) {
	handler := new(MockCommandHandler)
	sender := new(MockMessageSender)
	router := NewRouter(handler, sender, nil)
	ctx := context.Background()

	handler.On("Handle", "5521999999999", "/status").Return("📊 *DAY 1/30* in *Bronx*")
	handler.On("Handle", "5521888888888", "/market").Return("🛒 *MARKET: Bronx* (day 1)")
	sender.On("SendMessage", "5511000000000", "5521999999999@s.whatsapp.net", "📊 *DAY 1/30* in *Bronx*").Return("MSG1", nil)
	sender.On("SendMessage", "5511000000000", "120363000000000000@g.us", "🛒 *MARKET: Bronx* (day 1)").Return("", errors.New("offline"))

	// Test case 1: Private command is answered in the same chat
	sent := router.Route(ctx, Incoming{
		BotPhone: "5511000000000",
		Sender:   "5521999999999",
		Chat:     "5521999999999@s.whatsapp.net",
		Text:     "/status",
	})
	assert.True(t, sent)

	// Test case 2: Group command is keyed by the sender, reply goes to the group
	sent = router.Route(ctx, Incoming{
		BotPhone: "5511000000000",
		Sender:   "5521888888888",
		Chat:     "120363000000000000@g.us",
		IsGroup:  true,
		Text:     "/ market",
	})
	assert.False(t, sent)

	// Test case 3: Plain chatter never reaches the handler
	sent = router.Route(ctx, Incoming{
		BotPhone: "5511000000000",
		Sender:   "5521999999999",
		Chat:     "5521999999999@s.whatsapp.net",
		Text:     "good morning",
	})
	assert.False(t, sent)

	handler.AssertExpectations(t)
	sender.AssertExpectations(t)
	handler.AssertNumberOfCalls(t, "Handle", 2)
}

func TestRouterSkipsEmptyReplies(t *testing.T) {
	handler := new(MockCommandHandler)
	sender := new(MockMessageSender)
	handler.On("Handle", "5521999999999", "/save").Return("")

	sent := NewRouter(handler, sender, nil).Route(context.Background(), Incoming{
		BotPhone: "5511000000000",
		Sender:   "5521999999999",
		Chat:     "5521999999999@s.whatsapp.net",
		Text:     "/save",
	})

	assert.False(t, sent)
	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestParseJID(t *testing.T) {
	// Test case 1: Bare phone number
	jid, err := parseJID("5521999999999")
	require.NoError(t, err)
	assert.Equal(t, "5521999999999", jid.User)
	assert.Equal(t, "s.whatsapp.net", jid.Server)

	// Test case 2: Group JID
	jid, err = parseJID("120363000000000000@g.us")
	require.NoError(t, err)
	assert.Equal(t, "g.us", jid.Server)
}

func TestParseSessionFile(t *testing.T) {
	phone, id, ok := parseSessionFile("store_5521999999999_0b7f1c1e-8c1d-4a55-9b8e-3f0d2c6a9e11.db")
	assert.True(t, ok)
	assert.Equal(t, "5521999999999", phone)
	assert.Equal(t, "0b7f1c1e-8c1d-4a55-9b8e-3f0d2c6a9e11", id)

	for _, name := range []string{
		"store_5521999999999.db",
		"store__abc.db",
		"store_5521999999999_a_b.db",
		"5521999999999_abc.db",
		"store_5521999999999_abc.sqlite",
		"store_../x_abc.db",
	} {
		_, _, ok := parseSessionFile(name)
		assert.False(t, ok, name)
	}
}

func TestLatestSessionFiles(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mtimes := map[string]time.Time{
		"/s/store_111_old.db":  base,
		"/s/store_111_new.db":  base.Add(time.Hour),
		"/s/store_111_mid.db":  base.Add(time.Minute),
		"/s/store_222_only.db": base,
		"/s/store_333_gone.db": {},
		"/s/notes.db":          base,
	}
	files := []string{
		"/s/store_111_old.db",
		"/s/store_111_new.db",
		"/s/store_111_mid.db",
		"/s/store_222_only.db",
		"/s/store_333_gone.db",
		"/s/notes.db",
	}
	modTime := func(path string) (time.Time, error) {
		if path == "/s/store_333_gone.db" {
			return time.Time{}, os.ErrNotExist
		}
		return mtimes[path], nil
	}

	latest, stale := latestSessionFiles(files, modTime)

	require.Len(t, latest, 2)
	assert.Equal(t, "new", latest["111"].sessionID)
	assert.Equal(t, "/s/store_222_only.db", latest["222"].path)
	assert.ElementsMatch(t, []string{"/s/store_111_old.db", "/s/store_111_mid.db"}, stale)
}

func TestDeleteSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, sessionFileName("5521999999999", "abc"))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	sm := NewSessionManager(dir, nil)

	// Test case 1: Existing session
	require.NoError(t, sm.DeleteSession("5521999999999", "abc"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Test case 2: Already gone
	assert.NoError(t, sm.DeleteSession("5521999999999", "abc"))

	// Test case 3: Path escape
	assert.Error(t, sm.DeleteSession("../5521999999999", "abc"))
}

func TestClientManagerWithoutClients(t *testing.T) {
	cfg := config.Config{WhatsApp: config.WhatsAppConfig{StoreDir: t.TempDir(), ClientName: "Dopewars"}}
	cm := NewClientManager(new(MockCommandHandler), cfg, zap.NewNop())

	_, exists := cm.GetClient("5521999999999")
	assert.False(t, exists)

	_, err := cm.SendMessage("5521999999999", "5521888888888", "hi")
	assert.EqualError(t, err, "client not found for phone number: 5521999999999")

	assert.Error(t, cm.Disconnect("5521999999999"))
	cm.DisconnectAll()

	// Restore over an empty store is a no-op
	cm.Restore()
	_, exists = cm.GetClient("5521999999999")
	assert.False(t, exists)
}

func TestWALogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := newWALogger(zap.New(core), "Client").Sub("Socket")

	logger.Infof("connected to %s", "web.whatsapp.com")
	logger.Errorf("frame %d dropped", 7)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "whatsmeow.Client.Socket", entries[0].LoggerName)
	assert.Equal(t, "connected to web.whatsapp.com", entries[0].Message)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
}
