package vapid

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	webpush "github.com/SherClockHolmes/webpush-go"
	"golang.org/x/crypto/scrypt"
)

// KeyPair is the VAPID keypair identifying this origin to push gateways.
type KeyPair struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// Store keeps the keypair in sqlite with the private key encrypted under a
// key derived from the admin secret. Rotating the secret invalidates the
// stored pair, which forces a regeneration and re-subscription.
type Store struct {
	db            *sql.DB
	encryptionKey []byte
	logger        *slog.Logger
}

func NewStore(db *sql.DB, secret string, logger *slog.Logger) (*Store, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	store := &Store{
		db:            db,
		encryptionKey: key,
		logger:        logger,
	}

	if err := store.createTable(); err != nil {
		return nil, err
	}

	return store, nil
}

// Load returns the stored keypair, generating and persisting a fresh one
// on first run or when the stored pair can no longer be decrypted.
func (s *Store) Load() (*KeyPair, error) {
	pair, err := s.get()
	if err == nil {
		return pair, nil
	}
	if err != sql.ErrNoRows {
		s.logger.Warn("Stored VAPID keys unreadable (admin secret likely changed), regenerating", "error", err)
	}

	private, public, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to generate VAPID keys: %w", err)
	}

	pair = &KeyPair{PublicKey: public, PrivateKey: private}
	if err := s.save(pair); err != nil {
		return nil, fmt.Errorf("failed to persist VAPID keys: %w", err)
	}

	s.logger.Info("Generated new VAPID keypair")
	return pair, nil
}

func (s *Store) createTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vapid_keys (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			keys_encrypted BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (s *Store) get() (*KeyPair, error) {
	var encrypted []byte
	if err := s.db.QueryRow(`SELECT keys_encrypted FROM vapid_keys WHERE id = 1`).Scan(&encrypted); err != nil {
		return nil, err
	}

	decrypted, err := s.decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt VAPID keys: %w", err)
	}

	var pair KeyPair
	if err := json.Unmarshal(decrypted, &pair); err != nil {
		return nil, fmt.Errorf("failed to unmarshal VAPID keys: %w", err)
	}
	return &pair, nil
}

func (s *Store) save(pair *KeyPair) error {
	jsonData, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal VAPID keys: %w", err)
	}
	encrypted, err := s.encrypt(jsonData)
	if err != nil {
		return fmt.Errorf("failed to encrypt VAPID keys: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO vapid_keys (id, keys_encrypted) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET keys_encrypted = excluded.keys_encrypted
	`, encrypted)
	return err
}

func deriveKey(secret string) ([]byte, error) {
	salt := []byte("herald-vapid-salt-v1")
	return scrypt.Key([]byte(secret), salt, 32768, 8, 1, 32)
}

func (s *Store) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Store) decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
