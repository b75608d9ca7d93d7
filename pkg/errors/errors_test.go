package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorAggregatesFields(t *testing.T) {
	t.Parallel()

	err := NewValidationError("events[1].delay", "must be non-negative", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "events[1].delay", validationErr.Field)
	require.Contains(t, validationErr.Message, "must be non-negative")
}

func TestExecutionErrorIncludesScenarioContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("channel rejected event")
	err := NewExecutionError("scn-1", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "scn-1", executionErr.ScenarioID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestEventErrorIncludesEventContext(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("send timed out")
	err := NewEventError("scn-1", "evt-2", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "evt-2", executionErr.EventID)
	require.Contains(t, err.Error(), "evt-2")
	require.True(t, stdErrors.Is(err, underlying))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("execution", "run-42")
	require.True(t, IsNotFound(err))
	require.True(t, IsNotFound(fmt.Errorf("lookup: %w", err)))
	require.False(t, IsNotFound(stdErrors.New("boom")))
	require.Contains(t, err.Error(), "execution not found: run-42")
}
