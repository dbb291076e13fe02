package item_test

import (
	"testing"

	"tradeflow/internal/core/domain/model/item"

	"github.com/stretchr/testify/assert"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		kind     item.Kind
		state    item.State
		terminal bool
	}{
		{"rfq closed", item.KindRFQItem, item.StateRFQClosed, true},
		{"rfq force closed", item.KindRFQItem, item.StateForceClosed, true},
		{"rfq lost is not terminal", item.KindRFQItem, item.StateLost, false},
		{"order closed", item.KindOrderItem, item.StateClosed, true},
		{"order force closed", item.KindOrderItem, item.StateForceClosed, true},
		{"order paid", item.KindOrderItem, item.StatePaid, false},
		{"rfq closed is not an order terminal", item.KindOrderItem, item.StateRFQClosed, false},
		{"unknown kind uses the union", item.Kind("X"), item.StateRFQClosed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal(tt.kind))
		})
	}
}

func TestStates(t *testing.T) {
	assert.Equal(t, item.StateDraft, item.States(item.KindRFQItem)[0])
	assert.Equal(t, item.StateOrderCreated, item.States(item.KindOrderItem)[0])
	assert.Nil(t, item.States(item.Kind("X")))

	s := item.States(item.KindRFQItem)
	s[0] = "MUTATED"
	assert.Equal(t, item.StateDraft, item.States(item.KindRFQItem)[0])

	assert.NoError(t, item.StateQCFailed.Validate(item.KindOrderItem))
	assert.Error(t, item.StateQCFailed.Validate(item.KindRFQItem))
	assert.Error(t, item.Kind("PALLET").Validate())
}
