package client

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/42-Bangkok/gateway/pkg/gateway"
	"github.com/chzyer/readline"
	sargon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltKeyLength   = 16
	credentialsfile = ".gateway"
)

// A Config holds client's configuration.
type Config struct {
	Endpoint string          `json:"endpoint"`
	Session  gateway.Session `json:"session"`
}

// Remove removes the credential files from the current directory.
func Remove() error {
	return os.Remove(credentialsfile)
}

// Load gets the configuration from the current folder according to `credentialsfile` const.
func Load() (Config, error) {
	fmt.Println("Loading credentials from " + credentialsfile)

	ciphertext, err := os.ReadFile(credentialsfile)
	if err != nil {
		return Config{}, errors.Wrap(err, "could not read credentials file")
	}

	passphrase, err := readline.Password("passphrase: ")
	if err != nil {
		return Config{}, errors.Wrap(err, "could not read passphrase from stdin")
	}

	return unseal(ciphertext, passphrase)
}

// Save stores the configuration in the current folder according to `credentialsfile` const.
func Save(cfg Config) error {
	fmt.Println("Storing credentials in current directory as " + credentialsfile)
	passphrase, err := readline.Password("passphrase: ")
	if err != nil {
		return errors.Wrap(err, "could not read passphrase from stdin")
	}

	ciphertext, err := seal(cfg, passphrase)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(credentialsfile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", credentialsfile)
	}
	defer f.Close()

	_, err = f.Write(ciphertext)
	if err != nil {
		return errors.Wrap(err, "could not store credentials")
	}

	return errors.Wrap(f.Sync(), "could not store credentials")
}

// Refresh refreshes the session if needed.
func Refresh(client gateway.Client, cfg *Config) error {
	if !cfg.Session.AccessExpiredAt(time.Now().Add(time.Hour)) {
		return nil
	}
	return renew(client, cfg)
}

func renew(client gateway.Client, cfg *Config) error {
	if cfg.Session.RefreshExpired() {
		return errors.New("session expired, please login again")
	}

	fmt.Println("Refreshing the session")

	session, err := client.Refresh()
	if err != nil {
		return errors.Wrap(err, "could not refresh session")
	}
	cfg.Session = session

	err = Save(*cfg)
	return errors.Wrap(err, "could not save refreshed session")
}

func seal(cfg Config, passphrase []byte) ([]byte, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not serialize config")
	}

	//
	// Key derivation of passphrase

	salt, err := sargon2.GenerateRandomBytes(saltKeyLength)
	if err != nil {
		return nil, errors.Wrap(err, "could not generate salt for credentials")
	}
	hash := argon2.IDKey(passphrase, salt, 3, 64<<10, 2, 32)

	//
	// Seal config

	aead, err := chacha20poly1305.NewX(hash)
	if err != nil {
		return nil, errors.Wrap(err, "could not create AEAD")
	}
	nonce, err := sargon2.GenerateRandomBytes(uint32(aead.NonceSize()))
	if err != nil {
		return nil, errors.Wrap(err, "could not generate nonce for credentials")
	}

	ciphertext := aead.Seal(nil, nonce, payload, nil)
	ciphertext = append(nonce, ciphertext...)
	return append(salt, ciphertext...), nil
}

func unseal(ciphertext, passphrase []byte) (Config, error) {
	var cfg Config

	if len(ciphertext) < saltKeyLength+chacha20poly1305.NonceSizeX {
		return cfg, errors.New("invalid credentials file")
	}

	//
	// Key derivation of passphrase

	salt := ciphertext[:saltKeyLength]
	ciphertext = ciphertext[saltKeyLength:]
	hash := argon2.IDKey(passphrase, salt, 3, 64<<10, 2, 32)

	//
	// Unseal config

	aead, err := chacha20poly1305.NewX(hash)
	if err != nil {
		return cfg, errors.Wrap(err, "could not create AEAD")
	}

	nonce := ciphertext[:aead.NonceSize()]
	ciphertext = ciphertext[aead.NonceSize():]

	payload, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return cfg, errors.Wrap(err, "could not decrypt credentials file")
	}

	err = json.Unmarshal(payload, &cfg)
	return cfg, errors.Wrap(err, "could not parse config")
}
