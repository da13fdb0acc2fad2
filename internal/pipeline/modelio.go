package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/linreg/internal/model"
)

// savedModel is the on-disk model format
type savedModel struct {
	Version int               `json:"version"`
	Model   model.FittedModel `json:"model"`
}

const modelFileVersion = 1

// SaveModel writes a fitted model so it can be reused for predictions
func SaveModel(path string, m model.FittedModel) error {
	if !m.Available() {
		return fmt.Errorf("save model: %w", model.ErrModelUnavailable)
	}

	data, err := json.MarshalIndent(savedModel{Version: modelFileVersion, Model: m}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// LoadModel reads a model written by SaveModel. An unusable model is
// reported as model.ErrModelUnavailable.
func LoadModel(path string) (*model.FittedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var saved savedModel
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if saved.Version != modelFileVersion {
		return nil, fmt.Errorf("model %s: unsupported version %d", path, saved.Version)
	}
	if !saved.Model.Available() {
		return nil, fmt.Errorf("model %s: %w", path, model.ErrModelUnavailable)
	}

	return &saved.Model, nil
}
