package service

import (
	"fmt"

	"custody-bridge/config"
	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

// StaticCallerDirectory implements ports.CallerDirectory over configured credentials.
type StaticCallerDirectory struct {
	byKey map[string]*domain.Caller
}

// NewCallerDirectory validates and indexes the configured callers by access key.
func NewCallerDirectory(callers []config.CallerConfig) (*StaticCallerDirectory, error) {
	byKey := make(map[string]*domain.Caller, len(callers))
	for i, cc := range callers {
		if !common.IsHexAddress(cc.Address) {
			return nil, fmt.Errorf("callers[%d]: invalid address %q", i, cc.Address)
		}
		if _, dup := byKey[cc.AccessKey]; dup {
			return nil, fmt.Errorf("callers[%d]: duplicate access key", i)
		}
		byKey[cc.AccessKey] = &domain.Caller{
			Name:      cc.Name,
			AccessKey: cc.AccessKey,
			Secret:    cc.Secret,
			Address:   common.HexToAddress(cc.Address),
		}
	}
	return &StaticCallerDirectory{byKey: byKey}, nil
}

// Lookup returns the caller owning accessKey.
func (d *StaticCallerDirectory) Lookup(accessKey string) (*domain.Caller, bool) {
	c, ok := d.byKey[accessKey]
	return c, ok
}
