package strategy

import (
	"fmt"
	"strings"
)

const (
	TypeNaive    = "naive"
	TypeWindowed = "windowed"
)

// Types lists the strategy names accepted by NewStrategy.
func Types() []string {
	return []string{TypeNaive, TypeWindowed}
}

func NewStrategy(strategyType string, windowSize int, opts ...Option) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(strategyType)) {
	case TypeNaive:
		s, err := NewNaiveStrategy(windowSize, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypeWindowed:
		s, err := NewWindowedStrategy(windowSize, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategyType)
	}
}
