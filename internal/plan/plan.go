// Package plan describes which trials a run executes and how, and loads
// plans from YAML files.
package plan

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/registry"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var errInvalidPlan = errors.New("invalid plan")

// Plan is the input of a harness run.
type Plan struct {
	Iterations  int                 `yaml:"iterations" validate:"gte=1"`
	Operations  []backend.Operation `yaml:"operations" validate:"min=1,unique"`
	Backends    []backend.ID        `yaml:"backends" validate:"min=1,unique"`
	Workers     int                 `yaml:"workers" validate:"gte=1"`
	CallTimeout time.Duration       `yaml:"call_timeout" validate:"gt=0"`
	RateLimit   float64             `yaml:"rate_limit" validate:"gte=0"`
	Sample      registry.Sample     `yaml:"sample"`
}

// Default returns a plan covering every operation on every backend.
func Default() Plan {
	return Plan{
		Iterations:  100,
		Operations:  backend.Operations(),
		Backends:    backend.All(),
		Workers:     1,
		CallTimeout: 5 * time.Second,
		Sample:      registry.DefaultSample(),
	}
}

// FromConfig returns the default plan with the run options of cfg applied.
func FromConfig(cfg *config.AppConfig) Plan {
	p := Default()
	p.Iterations = cfg.Run.Iterations
	p.Workers = cfg.Run.Workers
	p.CallTimeout = cfg.Run.CallTimeout
	p.RateLimit = cfg.Run.RateLimit
	p.Sample = cfg.Sample()
	return p
}

// Load reads a YAML plan file on top of base. Keys missing from the file
// keep the base value.
func Load(path string, base Plan) (Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: plan path comes from the operator
	if err != nil {
		return Plan{}, fmt.Errorf("reading plan: %w", err)
	}

	return Parse(data, base)
}

// Parse decodes a YAML plan on top of base, then normalises and validates it.
func Parse(data []byte, base Plan) (Plan, error) {
	var raw struct {
		Iterations  *int             `yaml:"iterations"`
		Operations  []string         `yaml:"operations"`
		Backends    []string         `yaml:"backends"`
		Workers     *int             `yaml:"workers"`
		CallTimeout *time.Duration   `yaml:"call_timeout"`
		RateLimit   *float64         `yaml:"rate_limit"`
		Sample      *registry.Sample `yaml:"sample"`
	}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Plan{}, fmt.Errorf("parsing yaml: %w", err)
	}

	p := base

	if raw.Iterations != nil {
		p.Iterations = *raw.Iterations
	}

	if raw.Workers != nil {
		p.Workers = *raw.Workers
	}

	if raw.CallTimeout != nil {
		p.CallTimeout = *raw.CallTimeout
	}

	if raw.RateLimit != nil {
		p.RateLimit = *raw.RateLimit
	}

	if raw.Sample != nil {
		p.Sample = *raw.Sample
	}

	if len(raw.Operations) > 0 {
		ops, err := ParseOperations(raw.Operations)
		if err != nil {
			return Plan{}, err
		}
		p.Operations = ops
	}

	if len(raw.Backends) > 0 {
		ids, err := ParseBackends(raw.Backends)
		if err != nil {
			return Plan{}, err
		}
		p.Backends = ids
	}

	if err := p.Validate(); err != nil {
		return Plan{}, err
	}

	return p, nil
}

// ParseOperations parses operation ids, dropping duplicates. The value "all"
// selects every operation.
func ParseOperations(values []string) ([]backend.Operation, error) {
	if isAll(values) {
		return backend.Operations(), nil
	}

	out := make([]backend.Operation, 0, len(values))
	seen := make(map[backend.Operation]bool, len(values))

	for _, v := range splitAll(values) {
		op, err := backend.ParseOperation(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidPlan, err)
		}

		if !seen[op] {
			seen[op] = true
			out = append(out, op)
		}
	}

	return out, nil
}

// ParseBackends parses backend ids, dropping duplicates and ordering them by
// priority. The value "all" selects every backend.
func ParseBackends(values []string) ([]backend.ID, error) {
	if isAll(values) {
		return backend.All(), nil
	}

	seen := make(map[backend.ID]bool, len(values))

	for _, v := range splitAll(values) {
		id, err := backend.ParseID(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidPlan, err)
		}
		seen[id] = true
	}

	out := make([]backend.ID, 0, len(seen))
	for _, id := range backend.All() {
		if seen[id] {
			out = append(out, id)
		}
	}

	return out, nil
}

// Validate checks ranges and that every id is known.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", errInvalidPlan, strings.Join(problems, ", "))
		}
		return fmt.Errorf("%w: %w", errInvalidPlan, err)
	}

	for _, op := range p.Operations {
		if _, err := backend.ParseOperation(string(op)); err != nil {
			return fmt.Errorf("%w: %w", errInvalidPlan, err)
		}
	}

	for _, id := range p.Backends {
		if _, err := backend.ParseID(string(id)); err != nil {
			return fmt.Errorf("%w: %w", errInvalidPlan, err)
		}
	}

	return nil
}

// IsInvalid reports whether err came from plan validation.
func IsInvalid(err error) bool {
	return errors.Is(err, errInvalidPlan)
}

func isAll(values []string) bool {
	return len(values) == 1 && strings.EqualFold(strings.TrimSpace(values[0]), "all")
}

// splitAll flattens comma-separated entries.
func splitAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
