package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver for the device store
	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/interfaces"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

const commandTimeout = 30 * time.Second

// ClientManager handles WhatsApp client connections
type ClientManager struct {
	clients map[string]*ClientInfo
	router  *Router
	config  config.Config
	logger  *zap.Logger
	mutex   sync.RWMutex
}

// ClientInfo holds information about a WhatsApp client connection
type ClientInfo struct {
	UUID        string
	PhoneNumber string
	Client      *whatsmeow.Client
	Store       *store.Device
}

var _ interfaces.MessageSender = (*ClientManager)(nil)

// NewClientManager creates a client manager whose incoming commands are
// answered by handler
func NewClientManager(handler interfaces.CommandHandler, cfg config.Config, logger *zap.Logger) *ClientManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cm := &ClientManager{
		clients: make(map[string]*ClientInfo),
		config:  cfg,
		logger:  logger,
	}
	cm.router = NewRouter(handler, cm, logger)
	return cm
}

// Restore reconnects the newest stored session of every phone number and
// removes the older ones
func (cm *ClientManager) Restore() {
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		cm.logger.Error("Failed to create store directory", zap.Error(err))
		return
	}

	files, err := filepath.Glob(filepath.Join(cm.config.WhatsApp.StoreDir, "store_*.db"))
	if err != nil {
		cm.logger.Error("Failed to scan for existing sessions", zap.Error(err))
		return
	}

	latest, stale := latestSessionFiles(files, func(path string) (time.Time, error) {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, err
		}
		return info.ModTime(), nil
	})

	for _, file := range stale {
		if err := os.Remove(file); err != nil {
			cm.logger.Error("Failed to remove old session file", zap.String("file", file), zap.Error(err))
			continue
		}
		cm.logger.Info("Removed old session file", zap.String("file", file))
	}

	for phoneNumber, sf := range latest {
		container, err := sqlstore.New("sqlite3", storeDSN(sf.path), newWALogger(cm.logger, "Database"))
		if err != nil {
			cm.logger.Error("Failed to initialize database",
				zap.String("phone_number", phoneNumber),
				zap.Error(err))
			continue
		}

		deviceStore, err := container.GetFirstDevice()
		if err != nil {
			cm.logger.Info("No valid session found in database", zap.String("phone_number", phoneNumber))
			continue
		}

		client := cm.register(sf.sessionID, phoneNumber, deviceStore)
		if client.Store.ID == nil {
			cm.logger.Info("Session requires QR code login", zap.String("phone_number", phoneNumber))
			continue
		}

		go func(phone string, cli *whatsmeow.Client) {
			if err := cli.Connect(); err != nil {
				cm.logger.Error("Failed to connect restored client",
					zap.String("phone_number", phone),
					zap.Error(err))
				return
			}
			cm.logger.Info("Restored WhatsApp session", zap.String("phone_number", phone))
		}(phoneNumber, client)
	}
}

// register builds a client for deviceStore and makes it the phone number's
// active client
func (cm *ClientManager) register(sessionID, phoneNumber string, deviceStore *store.Device) *whatsmeow.Client {
	client := whatsmeow.NewClient(deviceStore, newWALogger(cm.logger, "Client"))
	client.AddEventHandler(cm.eventHandler(phoneNumber))

	cm.mutex.Lock()
	cm.clients[phoneNumber] = &ClientInfo{
		UUID:        sessionID,
		PhoneNumber: phoneNumber,
		Client:      client,
		Store:       deviceStore,
	}
	cm.mutex.Unlock()

	return client
}

func (cm *ClientManager) setDeviceProps() {
	store.DeviceProps.RequireFullSync = proto.Bool(false)
	store.DeviceProps.Os = proto.String(cm.config.WhatsApp.ClientName)
}

func (cm *ClientManager) storePath(phoneNumber, sessionID string) string {
	return filepath.Join(cm.config.WhatsApp.StoreDir, sessionFileName(phoneNumber, sessionID))
}

// GetClient retrieves a WhatsApp client by phone number, reconnecting it
// when it has a paired device
func (cm *ClientManager) GetClient(phoneNumber string) (*whatsmeow.Client, bool) {
	cm.mutex.RLock()
	clientInfo, exists := cm.clients[phoneNumber]
	cm.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if !clientInfo.Client.IsConnected() && clientInfo.Store.ID != nil {
		if err := clientInfo.Client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phone_number", phoneNumber),
				zap.Error(err))
			return nil, false
		}
		cm.logger.Info("Reconnected client", zap.String("phone_number", phoneNumber))
	}

	return clientInfo.Client, true
}

// GetQRChannel replaces any client for the phone number with a fresh,
// unpaired one and returns its pairing channel
func (cm *ClientManager) GetQRChannel(phoneNumber string) (<-chan whatsmeow.QRChannelItem, error) {
	cm.mutex.Lock()
	if clientInfo, exists := cm.clients[phoneNumber]; exists {
		clientInfo.Client.Disconnect()
		delete(cm.clients, phoneNumber)
	}
	cm.mutex.Unlock()

	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	sessionID := uuid.New().String()
	container, err := sqlstore.New("sqlite3", storeDSN(cm.storePath(phoneNumber, sessionID)), newWALogger(cm.logger, "Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cm.setDeviceProps()
	client := cm.register(sessionID, phoneNumber, container.NewDevice())

	// The channel must exist before connecting
	qrChan, err := client.GetQRChannel(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get QR channel: %w", err)
	}

	go func() {
		if err := client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phone_number", phoneNumber),
				zap.Error(err))
			return
		}
		cm.logger.Info("Client connected, waiting for pairing", zap.String("phone_number", phoneNumber))
	}()

	return qrChan, nil
}

// Disconnect closes a specific WhatsApp connection
func (cm *ClientManager) Disconnect(phoneNumber string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	clientInfo, exists := cm.clients[phoneNumber]
	if !exists {
		return fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	clientInfo.Client.Disconnect()
	delete(cm.clients, phoneNumber)
	return nil
}

// DisconnectAll closes all WhatsApp connections
func (cm *ClientManager) DisconnectAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for phoneNumber, clientInfo := range cm.clients {
		if clientInfo.Client != nil {
			clientInfo.Client.Disconnect()
			cm.logger.Info("Disconnected client", zap.String("phone_number", phoneNumber))
		}
	}

	cm.clients = make(map[string]*ClientInfo)
}

// IsLoggedIn checks if a client is logged in
func (cm *ClientManager) IsLoggedIn(phoneNumber string) (bool, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return false, fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	return client.IsLoggedIn(), nil
}

// SendMessage sends a text message from the bot number to recipient, which
// is either a bare phone number or a full JID
func (cm *ClientManager) SendMessage(phoneNumber, recipient, message string) (string, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return "", fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	recipientJID, err := parseJID(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}

	msg := &waProto.Message{
		Conversation: proto.String(message),
	}

	response, err := client.SendMessage(context.Background(), recipientJID, msg)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return response.ID, nil
}

// eventHandler returns the event callback for the bot number's client
func (cm *ClientManager) eventHandler(phoneNumber string) func(interface{}) {
	return func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			cm.handleIncomingMessage(phoneNumber, v)
		case *events.Connected:
			cm.logger.Info("WhatsApp client connected", zap.String("phone_number", phoneNumber))
		case *events.Disconnected:
			cm.logger.Info("WhatsApp client disconnected", zap.String("phone_number", phoneNumber))
		case *events.LoggedOut:
			cm.logger.Warn("WhatsApp client logged out", zap.String("phone_number", phoneNumber))
		}
	}
}

// handleIncomingMessage answers game commands sent to the bot number
func (cm *ClientManager) handleIncomingMessage(phoneNumber string, message *events.Message) {
	if message.Info.MessageSource.IsFromMe {
		return
	}

	content := message.Message.GetConversation()
	if content == "" {
		content = message.Message.GetExtendedTextMessage().GetText()
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cm.router.Route(ctx, Incoming{
		BotPhone: phoneNumber,
		Sender:   message.Info.Sender.User,
		Chat:     message.Info.Chat.String(),
		IsGroup:  message.Info.Chat.Server == waTypes.GroupServer,
		Text:     content,
	})
}

// parseJID converts a string to a WhatsApp JID
func parseJID(jidString string) (waTypes.JID, error) {
	if !strings.ContainsRune(jidString, '@') {
		// Bare phone number
		jidString = jidString + "@" + waTypes.DefaultUserServer
	}

	return waTypes.ParseJID(jidString)
}
