package subscription

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLSource loads the plan catalog from a YAML file, keyed by lookup key:
//
//	monthly:
//	  provider_plan_id: plan_55MGVOxft6Ipz
//	  name: Monthly
//	  lookup_key: monthly
//	  price:
//	    amount: 2900
//	    currency: USD
//	  interval: month
type YAMLSource struct {
	Path string
}

func NewYAMLSource(path string) YAMLSource {
	return YAMLSource{Path: path}
}

func (s YAMLSource) Load(_ context.Context) (Catalog, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	if err := validateCatalog(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// validateCatalog catches configuration mistakes at startup rather than at
// checkout time.
func validateCatalog(catalog Catalog) error {
	if len(catalog) == 0 {
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("catalog is empty"))
	}
	for key, plan := range catalog {
		if plan.LookupKey != "" && plan.LookupKey != key {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan lookup key mismatch: map key %s != lookup_key %s", key, plan.LookupKey))
		}
		switch plan.Interval {
		case IntervalMonth, IntervalQuarter, IntervalYear, IntervalLifetime:
		default:
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has unknown interval %q", key, plan.Interval))
		}
		if plan.TrialDays < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative trial days: %d", key, plan.TrialDays))
		}
	}
	return nil
}
