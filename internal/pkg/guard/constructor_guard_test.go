package guard_test

import (
	"errors"
	"testing"

	"tradeflow/internal/pkg/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorGuard_Validate(t *testing.T) {
	t.Run("properly_constructed_guard_returns_nil", func(t *testing.T) {
		// Given
		g := guard.NewConstructorGuard()

		// When
		err := g.Validate(errors.New("not constructed"))

		// Then
		require.NoError(t, err)
	})

	t.Run("zero_value_guard_returns_custom_error", func(t *testing.T) {
		// Given
		var g guard.ConstructorGuard
		expectedError := errors.New("command not constructed")

		// When
		err := g.Validate(expectedError)

		// Then
		require.Error(t, err)
		assert.Equal(t, expectedError, err)
	})

	t.Run("zero_value_guard_returns_default_error_when_nil", func(t *testing.T) {
		// Given
		var g guard.ConstructorGuard

		// When
		err := g.Validate(nil)

		// Then
		require.ErrorIs(t, err, guard.ErrDefaultConstructorGuard)
	})
}

// TestConstructorGuard_EmbeddedInCommand mirrors how commands embed the guard.
func TestConstructorGuard_EmbeddedInCommand(t *testing.T) {
	errNotConstructed := errors.New("approveCommand must be created via newApproveCommand")

	type approveCommand struct {
		itemID string
		guard  guard.ConstructorGuard
	}

	newApproveCommand := func(itemID string) (approveCommand, error) {
		if itemID == "" {
			return approveCommand{}, errors.New("item id is required")
		}
		return approveCommand{itemID: itemID, guard: guard.NewConstructorGuard()}, nil
	}

	t.Run("constructed_command_validates", func(t *testing.T) {
		cmd, err := newApproveCommand("item-1")

		require.NoError(t, err)
		require.NoError(t, cmd.guard.Validate(errNotConstructed))
		assert.Equal(t, "item-1", cmd.itemID)
	})

	t.Run("literal_command_fails_validation", func(t *testing.T) {
		cmd := approveCommand{itemID: "item-1"}

		require.ErrorIs(t, cmd.guard.Validate(errNotConstructed), errNotConstructed)
	})

	t.Run("constructor_rejects_bad_input", func(t *testing.T) {
		_, err := newApproveCommand("")

		require.EqualError(t, err, "item id is required")
	})
}
