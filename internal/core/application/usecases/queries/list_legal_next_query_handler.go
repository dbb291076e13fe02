package queries

import (
	"context"

	"tradeflow/internal/core/domain/services"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

// ListLegalNextQueryHandler reads the item outside any transaction and asks
// the validator for the role's outgoing edges. Preconditions are listed, not
// evaluated; the executor evaluates them when the transition is attempted.
type ListLegalNextQueryHandler struct {
	uowFactory ports.UnitOfWorkFactory
	validator  *services.Validator
}

func NewListLegalNextQueryHandler(uowFactory ports.UnitOfWorkFactory, validator *services.Validator) (ListLegalNextQueryHandler, error) {
	if uowFactory == nil {
		return ListLegalNextQueryHandler{}, errs.NewValueIsRequiredError("uowFactory")
	}
	if validator == nil {
		return ListLegalNextQueryHandler{}, errs.NewValueIsRequiredError("validator")
	}
	return ListLegalNextQueryHandler{uowFactory: uowFactory, validator: validator}, nil
}

func (h ListLegalNextQueryHandler) Handle(ctx context.Context, query ListLegalNextQuery) (ListLegalNextQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return ListLegalNextQueryResponse{}, err
	}

	it, err := h.uowFactory.Create().ItemRepository().Get(ctx, query.ItemID())
	if err != nil {
		return ListLegalNextQueryResponse{}, err
	}

	resp := ListLegalNextQueryResponse{
		ItemID: it.ID(),
		Kind:   it.Kind(),
		State:  it.State(),
		Next:   make([]NextState, 0),
	}
	if it.IsTerminal() || it.IsDeleted() {
		return resp, nil
	}

	table := h.validator.Table()
	for _, to := range h.validator.ListLegalNext(it.Kind(), it.State(), query.Role()) {
		def, ok := table.Lookup(it.Kind(), it.State(), to)
		if !ok {
			continue
		}
		resp.Next = append(resp.Next, NextState{
			State:                 to,
			RequiredFields:        def.RequiredFields,
			MissingFields:         it.MissingFields(def.RequiredFields),
			Preconditions:         def.Preconditions,
			RequiresJustification: def.RequiresJustification,
			Automatic:             def.IsAutomatic,
			Emergency:             def.IsEmergency,
		})
	}
	return resp, nil
}
