package parsers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

// FallbackBankCode is used when no parser matches the requested bank code.
const FallbackBankCode = "700"

//go:embed banks_config.json
var banksConfigJSON []byte

var (
	mu       sync.RWMutex
	registry = map[string]func() StatementParser{}
)

// Register binds a parser constructor to a bank code. Called from init
// functions of the concrete parsers.
func Register(bankCode string, factory func() StatementParser) {
	mu.Lock()
	defer mu.Unlock()
	registry[bankCode] = factory
}

// ForBank resolves the parser for a bank code. Resolution order: a
// registered concrete parser, then a generic parser driven by the embedded
// bank configuration, then the postal parser as fallback.
func ForBank(bankCode string) (StatementParser, error) {
	mu.RLock()
	factory, ok := registry[bankCode]
	if !ok {
		factory = registry[FallbackBankCode]
	}
	mu.RUnlock()

	if ok {
		return factory(), nil
	}

	if cfg, found, err := lookupBankConfig(bankCode); err != nil {
		return nil, err
	} else if found {
		return NewGenericParser(cfg), nil
	}

	if factory != nil {
		return factory(), nil
	}
	return nil, fmt.Errorf("no parser for bank code %q", bankCode)
}

func lookupBankConfig(bankCode string) (GenericConfig, bool, error) {
	var configs map[string]GenericConfig
	if err := json.Unmarshal(banksConfigJSON, &configs); err != nil {
		return GenericConfig{}, false, fmt.Errorf("parse bank config: %w", err)
	}
	cfg, ok := configs[bankCode]
	return cfg, ok, nil
}
