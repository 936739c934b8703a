package ai

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrModelNotFound      = errors.New("model not found")
	ErrInvalidIdentifier  = errors.New("invalid model identifier format, expected 'provider/modelName'")
	ErrModelAlreadyExists = errors.New("model already registered")
	ErrEmptyProviderName  = errors.New("provider name cannot be empty")
	ErrEmptyModelName     = errors.New("model name cannot be empty")
)

type ModelFactoryFunc func(modelName, apiKey string, baseURL ...string) *Model

type ModelInfo struct {
	// Identifier is filled in by RegisterModel as provider/modelName
	Identifier  string
	DisplayName string
	Family      string
	BaseURL     string
	NewModel    ModelFactoryFunc
}

type modelRegistry struct {
	mu     sync.RWMutex
	models map[string]ModelInfo
}

var defaultRegistry = &modelRegistry{models: make(map[string]ModelInfo)}

func RegisterModel(provider, modelName string, info ModelInfo) error {
	if provider == "" {
		return ErrEmptyProviderName
	}
	if modelName == "" {
		return ErrEmptyModelName
	}
	if info.NewModel == nil {
		return fmt.Errorf("model %s/%s has no factory", provider, modelName)
	}

	identifier := provider + "/" + modelName

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if _, exists := defaultRegistry.models[identifier]; exists {
		return fmt.Errorf("%w: %s", ErrModelAlreadyExists, identifier)
	}

	info.Identifier = identifier
	defaultRegistry.models[identifier] = info
	return nil
}

// New instantiates a registered model from its provider/modelName identifier.
func New(identifier, apiKey string) (*Model, error) {
	provider, modelName, ok := strings.Cut(identifier, "/")
	if !ok || provider == "" || modelName == "" {
		return nil, ErrInvalidIdentifier
	}

	defaultRegistry.mu.RLock()
	info, exists := defaultRegistry.models[identifier]
	defaultRegistry.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, identifier)
	}

	return info.NewModel(modelName, apiKey, info.BaseURL), nil
}

// Models lists the registered models sorted by identifier.
func Models() []ModelInfo {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	result := make([]ModelInfo, 0, len(defaultRegistry.models))
	for _, info := range defaultRegistry.models {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identifier < result[j].Identifier })
	return result
}
