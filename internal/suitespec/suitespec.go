// Package suitespec loads declarative check suites from YAML files.
//
// A suite file names its checks, their levels and their rules. Files are
// validated against a JSON schema before compilation, so malformed suites
// fail with a field-level message instead of a nil-pointer surprise deep in
// the rule registry.
package suitespec

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/veridata/veridata/internal/check"
	"github.com/veridata/veridata/pkg/predicate"
)

// ErrInvalidSuite is returned for files that fail schema validation.
var ErrInvalidSuite = errors.New("invalid suite definition")

// ErrUnknownRule is returned for rule types the registry does not know.
var ErrUnknownRule = errors.New("unknown rule type")

// Suite is a parsed, validated suite definition.
type Suite struct {
	Name   string      `yaml:"suite" json:"suite"`
	Table  string      `yaml:"table" json:"table"`
	Checks []CheckSpec `yaml:"checks" json:"checks"`
}

// CheckSpec is one declarative check.
type CheckSpec struct {
	Name  string `yaml:"name" json:"name"`
	Level string `yaml:"level" json:"level"`
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Rule is one declarative constraint.
type Rule struct {
	Type       string     `yaml:"type" json:"type"`
	Column     string     `yaml:"column,omitempty" json:"column,omitempty"`
	Columns    []string   `yaml:"columns,omitempty" json:"columns,omitempty"`
	Values     []string   `yaml:"values,omitempty" json:"values,omitempty"`
	Expression string     `yaml:"expression,omitempty" json:"expression,omitempty"`
	Pattern    string     `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	Where      string     `yaml:"where,omitempty" json:"where,omitempty"`
	Assertion  *Assertion `yaml:"assertion,omitempty" json:"assertion,omitempty"`
	Low        *float64   `yaml:"low,omitempty" json:"low,omitempty"`
	High       *float64   `yaml:"high,omitempty" json:"high,omitempty"`
}

// Assertion is a declarative predicate.
type Assertion struct {
	Op      string    `yaml:"op,omitempty" json:"op,omitempty"`
	Value   float64   `yaml:"value,omitempty" json:"value,omitempty"`
	Between []float64 `yaml:"between,omitempty" json:"between,omitempty"`
}

// schema validates the raw document shape; rule-specific field requirements
// are enforced by the rule builders, which know which fields they need.
const schema = `{
  "type": "object",
  "required": ["suite", "checks"],
  "properties": {
    "suite": {"type": "string", "minLength": 1},
    "table": {"type": "string"},
    "checks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "level", "rules"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "level": {"enum": ["info", "warning", "error"]},
          "rules": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["type"],
              "properties": {
                "type": {"type": "string", "minLength": 1},
                "column": {"type": "string"},
                "columns": {"type": "array", "items": {"type": "string"}},
                "values": {"type": "array", "items": {"type": "string"}},
                "expression": {"type": "string"},
                "pattern": {"type": "string"},
                "name": {"type": "string"},
                "where": {"type": "string"},
                "low": {"type": "number"},
                "high": {"type": "number"},
                "assertion": {
                  "type": "object",
                  "properties": {
                    "op": {"enum": ["==", ">", ">=", "<", "<="]},
                    "value": {"type": "number"},
                    "between": {
                      "type": "array",
                      "items": {"type": "number"},
                      "minItems": 2,
                      "maxItems": 2
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// LoadFile reads, validates and parses a suite file.
func LoadFile(path string) (*Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}

	return Load(raw)
}

// Load validates and parses a YAML suite document.
func Load(raw []byte) (*Suite, error) {
	var document any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("parse suite yaml: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("validate suite: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidSuite, strings.Join(problems, "; "))
	}

	var suite Suite
	if err := yaml.Unmarshal(raw, &suite); err != nil {
		return nil, fmt.Errorf("parse suite yaml: %w", err)
	}

	return &suite, nil
}

// Compile turns the suite into runnable checks.
func (s *Suite) Compile() ([]*check.Check, error) {
	checks := make([]*check.Check, 0, len(s.Checks))

	for _, spec := range s.Checks {
		compiled, err := compileCheck(spec)
		if err != nil {
			return nil, fmt.Errorf("check %q: %w", spec.Name, err)
		}

		checks = append(checks, compiled)
	}

	return checks, nil
}

func compileCheck(spec CheckSpec) (*check.Check, error) {
	c := check.New(parseLevel(spec.Level), spec.Name)

	for _, rule := range spec.Rules {
		builder, ok := ruleRegistry[rule.Type]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule.Type)
		}

		if err := builder(c, rule); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Type, err)
		}

		if rule.Where != "" {
			c.Where(rule.Where)
		}
	}

	return c, nil
}

func parseLevel(level string) check.Level {
	switch level {
	case "info":
		return check.LevelInfo
	case "warning":
		return check.LevelWarning
	default:
		return check.LevelError
	}
}

func (a *Assertion) predicate() (predicate.Predicate, error) {
	if a == nil {
		return predicate.IsOne(), nil
	}

	if len(a.Between) == 2 {
		return predicate.Between(a.Between[0], a.Between[1]), nil
	}

	switch a.Op {
	case "==":
		return predicate.EqualTo(a.Value), nil
	case ">":
		return predicate.GreaterThan(a.Value), nil
	case ">=":
		return predicate.GreaterOrEqual(a.Value), nil
	case "<":
		return predicate.LessThan(a.Value), nil
	case "<=":
		return predicate.LessOrEqual(a.Value), nil
	default:
		return nil, fmt.Errorf("%w: assertion op %q", ErrInvalidSuite, a.Op)
	}
}
