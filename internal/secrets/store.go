package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Per-user key store (file, 0600) with AES-GCM obfuscation. Not a
// replacement for an OS keychain but keeps API keys out of plain config.

const fileName = "keys.json"

type Store struct {
	path string
}

// Open returns the store rooted at the user config dir.
func Open() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	dir = filepath.Join(dir, "wipchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// OpenAt roots the store at dir instead of the user config dir.
func OpenAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

type keyFile struct {
	Keys map[string]string `json:"keys"` // provider -> base64(ciphertext)
}

func (s *Store) Set(provider, key string) error {
	provider = norm(provider)
	if provider == "" {
		return fmt.Errorf("provider required")
	}
	kf, _ := s.load()
	if kf.Keys == nil {
		kf.Keys = map[string]string{}
	}
	ct, err := encrypt([]byte(key))
	if err != nil {
		return err
	}
	kf.Keys[provider] = base64.StdEncoding.EncodeToString(ct)
	return s.save(kf)
}

func (s *Store) Get(provider string) (string, error) {
	provider = norm(provider)
	if provider == "" {
		return "", fmt.Errorf("provider required")
	}
	kf, err := s.load()
	if err != nil {
		return "", err
	}
	enc, ok := kf.Keys[provider]
	if !ok {
		return "", fmt.Errorf("key not found for %q", provider)
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", err
	}
	pt, err := decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func (s *Store) Delete(provider string) error {
	provider = norm(provider)
	if provider == "" {
		return fmt.Errorf("provider required")
	}
	kf, err := s.load()
	if err != nil {
		return err
	}
	delete(kf.Keys, provider)
	return s.save(kf)
}

func (s *Store) load() (keyFile, error) {
	var kf keyFile
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return keyFile{}, nil
		}
		return kf, err
	}
	if err := json.Unmarshal(data, &kf); err != nil {
		return kf, err
	}
	return kf, nil
}

func (s *Store) save(kf keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func norm(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// masterKey derives a per-host key. Obfuscation only: anyone with local
// access to this code and the file can recover the plaintext.
func masterKey() []byte {
	user := os.Getenv("USER")
	hash := sha256.Sum256([]byte(fmt.Sprintf("wipchat-%s-%s", runtime.GOOS, user)))
	return hash[:]
}

func encrypt(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(masterKey())
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
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(masterKey())
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
	nonce := ciphertext[:gcm.NonceSize()]
	body := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
