package config

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// ConfigHashLen is the number of hex characters used for the config hash (first 16 of SHA256).
const ConfigHashLen = 16

// HashFromBytes computes the config hash recorded with every run's history.
func HashFromBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:ConfigHashLen]
}

// HashFromPath reads the config file at path and returns its hash.
// Raw bytes are hashed, so line-ending changes produce a new hash.
func HashFromPath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashFromBytes(data), nil
}

// Hash hashes the canonical YAML rendering of cfg, so equivalent files that
// differ only in formatting or legacy encoding share a hash.
func Hash(cfg *PipelineConfig) (string, error) {
	data, err := Marshal(cfg)
	if err != nil {
		return "", err
	}
	return HashFromBytes(data), nil
}
