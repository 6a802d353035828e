package check_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/check"
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/pkg/predicate"
)

func tableWith(metrics ...metric.Metric) *metric.Table {
	return metric.NewTable(metrics)
}

func columnMetric(name, instance string, value float64) metric.Metric {
	return metric.Metric{
		Entity:   metric.EntityColumn,
		Name:     name,
		Instance: instance,
		Value:    metric.FromFloat(value),
	}
}

func TestEvaluate_PassingConstraint_Success(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelError, "age sanity").
		HasMin("Age", predicate.GreaterThan(0))

	result := c.Evaluate(tableWith(columnMetric("Minimum", "Age", 25)))

	assert.Equal(t, check.StatusSuccess, result.Status)
	require.Len(t, result.Constraints, 1)
	assert.Equal(t, check.ConstraintSuccess, result.Constraints[0].Status)
	assert.Empty(t, result.Constraints[0].Message)
}

func TestEvaluate_FailingConstraint_ReportsExpectation(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelError, "age sanity").
		HasMin("Age", predicate.GreaterThan(0))

	result := c.Evaluate(tableWith(columnMetric("Minimum", "Age", -5)))

	assert.Equal(t, check.StatusError, result.Status)
	require.Len(t, result.Constraints, 1)
	assert.Equal(t, check.ConstraintFailure, result.Constraints[0].Status)
	assert.Equal(t, "expected Age min > 0, got -5", result.Constraints[0].Message)
}

func TestEvaluate_WarningLevel_FailureDegradesToWarning(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelWarning, "age sanity").
		HasMin("Age", predicate.GreaterThan(0))

	result := c.Evaluate(tableWith(columnMetric("Minimum", "Age", -5)))

	assert.Equal(t, check.StatusWarning, result.Status)
}

func TestEvaluate_MissingMetric_ConstraintError(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelWarning, "age sanity").
		HasMin("Age", predicate.GreaterThan(0))

	result := c.Evaluate(tableWith())

	require.Len(t, result.Constraints, 1)
	assert.Equal(t, check.ConstraintError, result.Constraints[0].Status)
}

func TestEvaluate_ErrorMetric_EscalatesPastLevel(t *testing.T) {
	t.Parallel()

	// Warning level, but the metric itself could not be computed: the check
	// must come out as error, not warning.
	failed := metric.Metric{
		Entity:   metric.EntityColumn,
		Name:     "Minimum",
		Instance: "Age",
		Value:    metric.FromError(metric.ErrValueUndefined),
	}

	c := check.New(check.LevelWarning, "age sanity").
		HasMin("Age", predicate.GreaterThan(0))

	result := c.Evaluate(tableWith(failed))

	assert.Equal(t, check.StatusError, result.Status)
}

func TestEvaluate_PanickingPredicate_ConfinedToConstraint(t *testing.T) {
	t.Parallel()

	boom := predicate.Fn("always panics", func(float64) bool { panic("boom") })

	c := check.New(check.LevelError, "unstable").
		HasMin("Age", boom).
		HasMax("Age", predicate.LessThan(100))

	table := tableWith(
		columnMetric("Minimum", "Age", -5),
		columnMetric("Maximum", "Age", 40),
	)

	result := c.Evaluate(table)

	require.Len(t, result.Constraints, 2)
	assert.Equal(t, check.ConstraintError, result.Constraints[0].Status)
	assert.Equal(t, check.ConstraintSuccess, result.Constraints[1].Status)
	assert.Equal(t, check.StatusError, result.Status)
}

func TestWhere_RetrofitsFilterOnLastConstraint(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelError, "filtered").
		HasMin("Age", predicate.GreaterThan(0)).Where("Age IS NOT NULL")

	analyzers := c.Analyzers()
	require.Len(t, analyzers, 1)
	assert.Equal(t, "Age IS NOT NULL", analyzers[0].Where())
}

func TestWhere_WithoutPrecedingBuilder_NoOp(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelError, "empty").Where("Age > 0")

	assert.Empty(t, c.Analyzers())
}

func TestBuilders_ReturnSameCheck(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelError, "chained")
	returned := c.HasSize(predicate.EqualTo(4)).IsComplete("Name")

	assert.Same(t, c, returned)
	assert.Len(t, c.Constraints(), 2)
}

func TestIsContainedIn_BuildsNullTolerantCompliance(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelError, "domain").
		IsContainedIn("Sex", "male", "female")

	analyzers := c.Analyzers()
	require.Len(t, analyzers, 1)
	assert.Equal(t, "Compliance", analyzers[0].Name())
}

func TestHasSchema_FailsOnTypeMismatch(t *testing.T) {
	t.Parallel()

	schemaMetric := metric.Metric{
		Entity:   metric.EntityDataset,
		Name:     "Schema",
		Instance: "*",
		Value: metric.FromSchema(map[string]string{
			"PassengerId": "INTEGER",
			"Name":        "TEXT",
		}),
	}

	c := check.New(check.LevelError, "shape").HasSchema(map[string]string{
		"PassengerId": "TEXT",
		"Name":        "TEXT",
	})

	result := c.Evaluate(tableWith(schemaMetric))

	require.Len(t, result.Constraints, 1)
	assert.Equal(t, check.ConstraintFailure, result.Constraints[0].Status)
	assert.Contains(t, result.Constraints[0].Message, "PassengerId")
}

func TestEvaluate_MultipleConstraints_WorstStatusWins(t *testing.T) {
	t.Parallel()

	c := check.New(check.LevelError, "mixed").
		HasMin("Age", predicate.GreaterThan(0)).
		HasMax("Age", predicate.LessThan(100))

	table := tableWith(
		columnMetric("Minimum", "Age", -5),
		columnMetric("Maximum", "Age", 40),
	)

	result := c.Evaluate(table)

	assert.Equal(t, check.StatusError, result.Status)
	assert.Equal(t, check.ConstraintFailure, result.Constraints[0].Status)
	assert.Equal(t, check.ConstraintSuccess, result.Constraints[1].Status)
}
