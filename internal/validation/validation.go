// Package validation checks at startup that the backing services an operator marked as
// required are configured and reachable.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hirewire/backend/internal/logger"
	"go.uber.org/zap"
)

const checkTimeout = 10 * time.Second

// Check probes one backing service
type Check func(ctx context.Context) error

// ServiceValidator holds the registered checks and the names that must pass
type ServiceValidator struct {
	required []string
	checks   map[string]Check
}

// NewServiceValidator creates a validator. Names are matched case-insensitively.
func NewServiceValidator(required []string) *ServiceValidator {
	sv := &ServiceValidator{checks: make(map[string]Check)}
	for _, name := range required {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			sv.required = append(sv.required, name)
		}
	}
	return sv
}

// Register adds the check for a configured service
func (sv *ServiceValidator) Register(name string, check Check) {
	sv.checks[strings.ToLower(name)] = check
}

// Checks returns every registered check, for the health endpoint
func (sv *ServiceValidator) Checks() map[string]Check {
	out := make(map[string]Check, len(sv.checks))
	for name, check := range sv.checks {
		out[name] = check
	}
	return out
}

// Registered lists the registered service names in order
func (sv *ServiceValidator) Registered() []string {
	names := make([]string, 0, len(sv.checks))
	for name := range sv.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateServices fails on the first required service that is unregistered or whose
// check errors. Optional services are not probed.
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.required) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}
	logger.Log.Info("Validating required services", zap.Strings("services", sv.required))

	for _, name := range sv.required {
		check, ok := sv.checks[name]
		if !ok {
			return fmt.Errorf("required service %q is not configured", name)
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.ErrorWithFields("Required service validation failed", err, zap.String("service", name))
			return fmt.Errorf("required service %q: %w", name, err)
		}
		logger.Log.Info("Service validated successfully", zap.String("service", name))
	}
	return nil
}
