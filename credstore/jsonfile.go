package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// jsonFileSchema is the on-disk layout. expiresAt is epoch milliseconds,
// kept as a string to match what other GoodShelf clients persist.
type jsonFileSchema struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
}

// JSONFile is a Store backed by a single JSON file, so a session survives
// process restarts. Writes go to a temp file in the same directory and are
// renamed into place.
type JSONFile struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*JSONFile)(nil)

// NewJSONFile creates a store at path. The file is created lazily on the
// first write; a missing file reads as an empty session.
func NewJSONFile(path string) (*JSONFile, error) {
	if path == "" {
		return nil, errors.New("credstore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &JSONFile{path: path}, nil
}

func (j *JSONFile) GetTokenSet() (*TokenSet, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := j.read()
	if err != nil {
		return nil, err
	}
	if data.AccessToken == "" && data.RefreshToken == "" {
		return nil, nil
	}
	ts := &TokenSet{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}
	if data.ExpiresAt != "" {
		ms, err := strconv.ParseInt(data.ExpiresAt, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing expiresAt %q: %w", data.ExpiresAt, err)
		}
		ts.ExpiresAt = time.UnixMilli(ms)
	}
	return ts, nil
}

func (j *JSONFile) SetTokenSet(ts *TokenSet) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.update(func(data *jsonFileSchema) {
		if ts == nil {
			data.AccessToken = ""
			data.RefreshToken = ""
			data.ExpiresAt = ""
			return
		}
		data.AccessToken = ts.AccessToken
		data.RefreshToken = ts.RefreshToken
		data.ExpiresAt = strconv.FormatInt(ts.ExpiresAt.UnixMilli(), 10)
	})
}

func (j *JSONFile) GetCodeVerifier() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := j.read()
	if err != nil {
		return "", err
	}
	return data.CodeVerifier, nil
}

func (j *JSONFile) SetCodeVerifier(v string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.update(func(data *jsonFileSchema) {
		data.CodeVerifier = v
	})
}

func (j *JSONFile) DeleteCodeVerifier() error {
	return j.SetCodeVerifier("")
}

func (j *JSONFile) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.write(&jsonFileSchema{})
}

// read loads the current schema. Callers must hold mu.
func (j *JSONFile) read() (*jsonFileSchema, error) {
	b, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return &jsonFileSchema{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	data := &jsonFileSchema{}
	if err := json.Unmarshal(b, data); err != nil {
		return nil, fmt.Errorf("decoding store: %w", err)
	}
	return data, nil
}

func (j *JSONFile) update(fn func(*jsonFileSchema)) error {
	data, err := j.read()
	if err != nil {
		return err
	}
	fn(data)
	return j.write(data)
}

func (j *JSONFile) write(data *jsonFileSchema) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.path), filepath.Base(j.path)+".tmp")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting store mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
