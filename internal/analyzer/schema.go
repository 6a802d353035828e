package analyzer

import (
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/state"
)

// SchemaAnalyzer snapshots the relation schema as a structured metric. It is
// answered from backend introspection; the runner never builds a query for
// it.
type SchemaAnalyzer struct {
	base
}

// NewSchema creates a schema-snapshot analyzer.
func NewSchema() SchemaAnalyzer {
	return SchemaAnalyzer{base: base{
		name:     "Schema",
		instance: "*",
		entity:   metric.EntityDataset,
	}}
}

// MetricFromSchema derives the structured schema metric.
func (a SchemaAnalyzer) MetricFromSchema(s state.Schema) metric.Metric {
	types := make(map[string]string, len(s.Types))
	for col, declared := range s.Types {
		types[col] = declared
	}

	return metric.Metric{
		Entity:   a.entity,
		Name:     a.name,
		Instance: a.instance,
		Value:    metric.FromSchema(types),
	}
}
