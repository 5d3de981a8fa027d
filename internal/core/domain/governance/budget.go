package governance

import (
	"fmt"
	"strings"
)

// EnforcementMode is the policy applied once spend reaches the monthly limit.
type EnforcementMode int

const (
	EnforcementWarn EnforcementMode = iota
	EnforcementThrottle
	EnforcementBlock
)

func (m EnforcementMode) String() string {
	switch m {
	case EnforcementWarn:
		return "warn"
	case EnforcementThrottle:
		return "throttle"
	case EnforcementBlock:
		return "block"
	default:
		return fmt.Sprintf("enforcement(%d)", int(m))
	}
}

// ParseEnforcementMode accepts warn, throttle or block (case-insensitive).
func ParseEnforcementMode(s string) (EnforcementMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warn":
		return EnforcementWarn, nil
	case "throttle":
		return EnforcementThrottle, nil
	case "block":
		return EnforcementBlock, nil
	default:
		return EnforcementBlock, fmt.Errorf("unknown enforcement mode %q", s)
	}
}

func (m EnforcementMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *EnforcementMode) UnmarshalText(b []byte) error {
	parsed, err := ParseEnforcementMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// BudgetLevel is the ordered budget state of a tenant. Alerts fire on upward moves only.
type BudgetLevel int

const (
	BudgetLevelNone BudgetLevel = iota
	BudgetLevelWarning
	BudgetLevelExceeded
)

func (l BudgetLevel) String() string {
	switch l {
	case BudgetLevelNone:
		return "none"
	case BudgetLevelWarning:
		return "warning"
	case BudgetLevelExceeded:
		return "exceeded"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseBudgetLevel is the inverse of BudgetLevel.String.
func ParseBudgetLevel(s string) (BudgetLevel, error) {
	switch s {
	case "none", "":
		return BudgetLevelNone, nil
	case "warning":
		return BudgetLevelWarning, nil
	case "exceeded":
		return BudgetLevelExceeded, nil
	default:
		return BudgetLevelNone, fmt.Errorf("unknown budget level %q", s)
	}
}
