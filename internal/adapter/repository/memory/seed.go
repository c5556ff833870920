package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"karsaz/internal/domain/entity"
)

// Seed is the fixture format for running the service without a database.
type Seed struct {
	Users []*entity.User `json:"users"`
	Ads   []*entity.Ad   `json:"ads"`
}

func LoadSeed(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}
