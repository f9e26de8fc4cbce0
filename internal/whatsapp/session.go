package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/user/dopewars-engine/config"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.uber.org/zap"
)

const qrTimeout = 60 * time.Second

var ErrAlreadyPaired = errors.New("client already logged in")

// QRCode is a pairing code and the PNG rendering of it
type QRCode struct {
	Code string `json:"qr_code"`
	Path string `json:"path"`
}

// QRCodeManager handles QR code generation and authentication
type QRCodeManager struct {
	clientManager *ClientManager
	config        config.Config
	logger        *zap.Logger
}

// NewQRCodeManager creates a new QR code manager
func NewQRCodeManager(clientManager *ClientManager, cfg config.Config, logger *zap.Logger) *QRCodeManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRCodeManager{
		clientManager: clientManager,
		config:        cfg,
		logger:        logger,
	}
}

// GenerateQRCode starts pairing a new device for the phone number and
// returns the first code WhatsApp hands out, also written as a PNG under
// the store directory
func (qm *QRCodeManager) GenerateQRCode(ctx context.Context, phoneNumber string) (*QRCode, error) {
	if loggedIn, err := qm.clientManager.IsLoggedIn(phoneNumber); err == nil && loggedIn {
		return nil, ErrAlreadyPaired
	}

	qrDir := filepath.Join(qm.config.WhatsApp.StoreDir, "qrcodes")
	if err := os.MkdirAll(qrDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create QR code directory: %w", err)
	}

	qrChan, err := qm.clientManager.GetQRChannel(phoneNumber)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, qrTimeout)
	defer cancel()

	select {
	case evt, ok := <-qrChan:
		if !ok {
			return nil, fmt.Errorf("QR channel closed")
		}
		if evt.Event != "code" {
			return nil, fmt.Errorf("unexpected QR event: %s", evt.Event)
		}

		qrPath := filepath.Join(qrDir, fmt.Sprintf("%s.png", phoneNumber))
		if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 256, qrPath); err != nil {
			return nil, fmt.Errorf("failed to generate QR code image: %w", err)
		}

		qm.logger.Info("QR code generated",
			zap.String("phone_number", phoneNumber),
			zap.String("path", qrPath))

		return &QRCode{Code: evt.Code, Path: qrPath}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout waiting for QR code: %w", ctx.Err())
	}
}

// SessionManager handles WhatsApp session management
type SessionManager struct {
	storeDir string
	logger   *zap.Logger
}

// SessionInfo holds information about a WhatsApp session
type SessionInfo struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	JID         string    `json:"jid,omitempty"`
	Paired      bool      `json:"paired"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSessionManager creates a new session manager
func NewSessionManager(storeDir string, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		storeDir: storeDir,
		logger:   logger,
	}
}

// ListSessions returns every stored device session
func (sm *SessionManager) ListSessions() ([]SessionInfo, error) {
	if err := os.MkdirAll(sm.storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(sm.storeDir, "store_*.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(matches))
	for _, match := range matches {
		phoneNumber, sessionID, ok := parseSessionFile(filepath.Base(match))
		if !ok {
			sm.logger.Warn("Failed to parse session filename", zap.String("path", match))
			continue
		}

		fileInfo, err := os.Stat(match)
		if err != nil {
			sm.logger.Warn("Failed to stat session file", zap.String("path", match), zap.Error(err))
			continue
		}

		container, err := sqlstore.New("sqlite3", storeDSN(match), newWALogger(sm.logger, "Database"))
		if err != nil {
			sm.logger.Warn("Failed to open session database", zap.String("path", match), zap.Error(err))
			continue
		}

		info := SessionInfo{
			ID:          sessionID,
			PhoneNumber: phoneNumber,
			UpdatedAt:   fileInfo.ModTime(),
		}
		if deviceStore, err := container.GetFirstDevice(); err == nil && deviceStore.ID != nil {
			info.JID = deviceStore.ID.String()
			info.Paired = true
		}
		sessions = append(sessions, info)
	}

	return sessions, nil
}

// DeleteSession removes a stored device session
func (sm *SessionManager) DeleteSession(phoneNumber, sessionID string) error {
	if _, _, ok := parseSessionFile(sessionFileName(phoneNumber, sessionID)); !ok {
		return fmt.Errorf("invalid session %q for %q", sessionID, phoneNumber)
	}

	dbPath := filepath.Join(sm.storeDir, sessionFileName(phoneNumber, sessionID))
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session database: %w", err)
	}

	sm.logger.Info("Deleted session",
		zap.String("phone_number", phoneNumber),
		zap.String("session_id", sessionID))
	return nil
}

func sessionFileName(phoneNumber, sessionID string) string {
	return fmt.Sprintf("store_%s_%s.db", phoneNumber, sessionID)
}

// parseSessionFile splits "store_<phone>_<session>.db"
func parseSessionFile(name string) (phoneNumber, sessionID string, ok bool) {
	if filepath.Base(name) != name || !strings.HasPrefix(name, "store_") || !strings.HasSuffix(name, ".db") {
		return "", "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, "store_"), ".db")
	phoneNumber, sessionID, found := strings.Cut(rest, "_")
	if !found || phoneNumber == "" || sessionID == "" || strings.Contains(sessionID, "_") {
		return "", "", false
	}
	return phoneNumber, sessionID, true
}

func storeDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on"
}

type sessionFile struct {
	path      string
	sessionID string
	modTime   time.Time
}

// latestSessionFiles keeps the most recently modified session of every
// phone number and returns the rest as stale
func latestSessionFiles(files []string, modTime func(string) (time.Time, error)) (map[string]sessionFile, []string) {
	latest := make(map[string]sessionFile)
	var stale []string

	for _, file := range files {
		phoneNumber, sessionID, ok := parseSessionFile(filepath.Base(file))
		if !ok {
			continue
		}
		mt, err := modTime(file)
		if err != nil {
			continue
		}

		current, exists := latest[phoneNumber]
		switch {
		case !exists:
			latest[phoneNumber] = sessionFile{path: file, sessionID: sessionID, modTime: mt}
		case mt.After(current.modTime):
			stale = append(stale, current.path)
			latest[phoneNumber] = sessionFile{path: file, sessionID: sessionID, modTime: mt}
		default:
			stale = append(stale, file)
		}
	}
	return latest, stale
}
