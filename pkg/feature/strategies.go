package feature

import (
	"context"
	"errors"
	"hash/fnv"
	"slices"
)

// AlwaysStrategy returns a fixed answer.
type AlwaysStrategy struct {
	Value bool
}

func (s *AlwaysStrategy) Evaluate(context.Context) (bool, error) {
	return s.Value, nil
}

// NewAlwaysOnStrategy returns a strategy that always enables the flag.
func NewAlwaysOnStrategy() Strategy { return &AlwaysStrategy{Value: true} }

// NewAlwaysOffStrategy returns a strategy that always disables the flag.
func NewAlwaysOffStrategy() Strategy { return &AlwaysStrategy{Value: false} }

// TenantCriteria selects tenants. DenyList wins over everything, AllowList
// wins over Percentage. With no criteria every tenant is selected.
type TenantCriteria struct {
	AllowList  []string `json:"allow_list,omitempty"`
	DenyList   []string `json:"deny_list,omitempty"`
	Percentage *int     `json:"percentage,omitempty"`
}

// TenantStrategy enables a flag per tenant.
type TenantStrategy struct {
	Criteria TenantCriteria
	extract  TenantExtractor
}

// NewTenantStrategy creates a tenant-targeted strategy. extract reads the
// tenant from the evaluation context, usually from the active tenant scope.
func NewTenantStrategy(criteria TenantCriteria, extract TenantExtractor) Strategy {
	return &TenantStrategy{Criteria: criteria, extract: extract}
}

func (s *TenantStrategy) Evaluate(ctx context.Context) (bool, error) {
	var id string
	if s.extract != nil {
		id, _ = s.extract(ctx)
	}

	if id != "" && slices.Contains(s.Criteria.DenyList, id) {
		return false, nil
	}
	if id != "" && slices.Contains(s.Criteria.AllowList, id) {
		return true, nil
	}
	if s.Criteria.Percentage != nil {
		return inRollout(id, *s.Criteria.Percentage)
	}
	// An allow list alone is exhaustive.
	return len(s.Criteria.AllowList) == 0, nil
}

// inRollout places id in a stable bucket of 100.
func inRollout(id string, percentage int) (bool, error) {
	if percentage < 0 || percentage > 100 {
		return false, errors.Join(ErrInvalidStrategy, errors.New("percentage must be between 0 and 100"))
	}
	switch {
	case percentage == 0:
		return false, nil
	case percentage == 100:
		return true, nil
	case id == "":
		return false, nil
	}

	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32()%100) < percentage, nil
}

// CompositeStrategy combines strategies with "and" or "or".
type CompositeStrategy struct {
	Strategies []Strategy
	Operator   string
}

func (s *CompositeStrategy) Evaluate(ctx context.Context) (bool, error) {
	if len(s.Strategies) == 0 {
		return false, ErrInvalidStrategy
	}

	switch s.Operator {
	case "and":
		for _, st := range s.Strategies {
			ok, err := st.Evaluate(ctx)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case "or":
		for _, st := range s.Strategies {
			ok, err := st.Evaluate(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.Join(ErrInvalidStrategy, errors.New("composite operator must be 'and' or 'or'"))
	}
}

// NewAndStrategy requires every child strategy.
func NewAndStrategy(strategies ...Strategy) Strategy {
	return &CompositeStrategy{Strategies: strategies, Operator: "and"}
}

// NewOrStrategy requires at least one child strategy.
func NewOrStrategy(strategies ...Strategy) Strategy {
	return &CompositeStrategy{Strategies: strategies, Operator: "or"}
}
