package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// CredentialStore is the fixed list of accounts allowed to log in.
// Passwords are compared as stored.
type CredentialStore struct {
	passwords map[string]string
}

func NewCredentialStore(users map[string]string) *CredentialStore {
	cs := &CredentialStore{passwords: map[string]string{}}
	for email, password := range users {
		cs.passwords[normalizeEmail(email)] = password
	}
	return cs
}

// LoadCredentialsFile reads "email,password" lines. Blank lines and lines
// starting with # are skipped; malformed lines are logged and skipped.
// A missing file yields an empty store.
func LoadCredentialsFile(path string, logger *log.Logger) (*CredentialStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Printf("[auth] credentials file %s not found, no users can log in", path)
			return NewCredentialStore(nil), nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseCredentials(f, logger)
}

func ParseCredentials(r io.Reader, logger *log.Logger) (*CredentialStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	cs := NewCredentialStore(nil)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			logger.Printf("[auth] skipping malformed credentials line %d", lineNo)
			continue
		}
		cs.passwords[normalizeEmail(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return cs, nil
}

// Merge adds users on top of the store, overriding existing entries.
func (c *CredentialStore) Merge(users map[string]string) {
	for email, password := range users {
		c.passwords[normalizeEmail(email)] = password
	}
}

func (c *CredentialStore) Check(email, password string) bool {
	stored, ok := c.passwords[normalizeEmail(email)]
	return ok && stored == password
}

func (c *CredentialStore) Len() int {
	return len(c.passwords)
}

func (c *CredentialStore) Known(email string) bool {
	_, ok := c.passwords[normalizeEmail(email)]
	return ok
}
