package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vsariola/rumpu"
	"gopkg.in/yaml.v2"
)

// ReadSession parses a session, trying JSON first and YAML second, so
// both hand-written .yml files and machine-generated .json files work.
func ReadSession(data []byte) (rumpu.Session, error) {
	var session rumpu.Session
	if errJSON := json.Unmarshal(data, &session); errJSON != nil {
		session = rumpu.Session{}
		if errYaml := yaml.Unmarshal(data, &session); errYaml != nil {
			return rumpu.Session{}, fmt.Errorf("the session could not be parsed as json (%v) or yaml (%v)", errJSON, errYaml)
		}
	}
	if err := session.Validate(); err != nil {
		return rumpu.Session{}, fmt.Errorf("invalid session: %w", err)
	}
	return session, nil
}

// WriteSession serializes a session as YAML.
func WriteSession(session rumpu.Session) ([]byte, error) {
	return yaml.Marshal(session)
}

// LoadSessionFile reads and parses the session in the given file.
func LoadSessionFile(path string) (rumpu.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rumpu.Session{}, fmt.Errorf("cannot read session: %w", err)
	}
	return ReadSession(data)
}

// SaveSessionFile writes the session to the given file as YAML, creating
// the directories on the way if needed.
func SaveSessionFile(path string, session rumpu.Session) error {
	data, err := WriteSession(session)
	if err != nil {
		return fmt.Errorf("cannot serialize session: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write session: %w", err)
	}
	return nil
}
