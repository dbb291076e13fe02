package commands

import (
	"errors"
	"strings"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"
	"tradeflow/internal/pkg/guard"
)

var ErrTransitionItemCommandIsNotConstructed = errors.New(
	"TransitionItemCommand must be created via NewTransitionItemCommand constructor",
)

// TransitionItemCommand asks the executor to move one item to a new state.
//
// Example:
//
//	cmd, err := NewTransitionItemCommand(itemID, item.StateTechReview, actor, "")
//	if err != nil {
//	    return err
//	}
//	result, err := handler.Handle(ctx, cmd)
type TransitionItemCommand struct {
	itemID        kernel.UUID
	to            item.State
	actor         kernel.Actor
	justification string

	guard guard.ConstructorGuard
}

// NewTransitionItemCommand validates the request shape. Whether the
// transition is legal is decided by the handler against stored state.
func NewTransitionItemCommand(
	itemID kernel.UUID,
	to item.State,
	actor kernel.Actor,
	justification string,
) (TransitionItemCommand, error) {
	var toErr error
	if to == "" {
		toErr = errs.NewValueIsRequiredError("target state")
	}
	if err := errors.Join(itemID.Validate(), toErr, actor.Validate()); err != nil {
		return TransitionItemCommand{}, err
	}

	return TransitionItemCommand{
		itemID:        itemID,
		to:            to,
		actor:         actor,
		justification: strings.TrimSpace(justification),
		guard:         guard.NewConstructorGuard(),
	}, nil
}

func (c TransitionItemCommand) ItemID() kernel.UUID   { return c.itemID }
func (c TransitionItemCommand) To() item.State        { return c.to }
func (c TransitionItemCommand) Actor() kernel.Actor   { return c.actor }
func (c TransitionItemCommand) Justification() string { return c.justification }

// Validate ensures the command was created through the constructor.
func (c TransitionItemCommand) Validate() error {
	return c.guard.Validate(ErrTransitionItemCommandIsNotConstructed)
}
