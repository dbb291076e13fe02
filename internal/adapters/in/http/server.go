package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tradeflow/internal/adapters/out/rbac"
	"tradeflow/internal/core/application/orchestrator"
	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/application/usecases/queries"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"

	"github.com/getkin/kin-openapi/routers"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Request headers identifying the caller. Authentication happens upstream.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type (
	DocumentSubmitter interface {
		Handle(ctx context.Context, cmd commands.SubmitDocumentCommand) (commands.SubmittedDocument, error)
	}
	TransitionExecutor interface {
		Handle(ctx context.Context, cmd commands.TransitionItemCommand) (commands.TransitionResult, error)
	}
	ItemDeleter interface {
		Handle(ctx context.Context, cmd commands.DeleteItemCommand) error
	}
	InspectionRecorder interface {
		Handle(ctx context.Context, cmd commands.RecordInspectionCommand) (ports.InspectionOutcome, error)
	}
	SLASweeper interface {
		Handle(ctx context.Context, cmd commands.SweepSLACommand) (commands.SweepResult, error)
	}
	NextStatesLister interface {
		Handle(ctx context.Context, query queries.ListLegalNextQuery) (queries.ListLegalNextQueryResponse, error)
	}
	WorkflowRunner interface {
		Run(ctx context.Context, initial orchestrator.RunContext, opts orchestrator.Options) (
			orchestrator.RunResult, orchestrator.Summary, error)
	}
)

// Handlers are the use cases the server exposes. Hub is optional.
type Handlers struct {
	Documents   DocumentSubmitter
	Transitions TransitionExecutor
	Deletes     ItemDeleter
	Inspections InspectionRecorder
	Sweeps      SLASweeper
	NextStates  NextStatesLister
	OpenItems   queries.GetOpenItemsHandler
	Runs        WorkflowRunner
	Access      ports.RoleAccess
	Hub         http.Handler
}

// Server maps HTTP requests onto the workflow use cases.
type Server struct {
	h      Handlers
	router routers.Router
	logger *slog.Logger
}

func NewServer(h Handlers, logger *slog.Logger) (*Server, error) {
	switch {
	case h.Documents == nil:
		return nil, errs.NewValueIsRequiredError("documents handler")
	case h.Transitions == nil:
		return nil, errs.NewValueIsRequiredError("transitions handler")
	case h.Deletes == nil:
		return nil, errs.NewValueIsRequiredError("deletes handler")
	case h.Inspections == nil:
		return nil, errs.NewValueIsRequiredError("inspections handler")
	case h.Sweeps == nil:
		return nil, errs.NewValueIsRequiredError("sweeps handler")
	case h.NextStates == nil:
		return nil, errs.NewValueIsRequiredError("next states handler")
	case h.OpenItems == nil:
		return nil, errs.NewValueIsRequiredError("open items handler")
	case h.Runs == nil:
		return nil, errs.NewValueIsRequiredError("workflow runner")
	case h.Access == nil:
		return nil, errs.NewValueIsRequiredError("role access")
	}

	doc, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	router, err := newRouter(doc)
	if err != nil {
		return nil, err
	}
	if err = registerSwagger(doc); err != nil {
		return nil, err
	}
	return &Server{h: h, router: router, logger: logger.With("component", "http")}, nil
}

// Register mounts every route on e. Requests under /api/v1 are checked
// against the embedded OpenAPI document before they reach a handler.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if s.h.Hub != nil {
		e.GET("/ws", echo.WrapHandler(s.h.Hub))
	}

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1", s.requestValidator(s.router))
	api.POST("/documents", s.SubmitDocument)
	api.GET("/items/open", s.GetOpenItems)
	api.POST("/items/:id/transitions", s.TransitionItem)
	api.GET("/items/:id/next", s.ListLegalNext)
	api.DELETE("/items/:id", s.DeleteItem)
	api.POST("/runs", s.StartRun)
	api.POST("/inspections", s.RecordInspection)
	api.POST("/sla/sweep", s.SweepSLA)
}

func actorFrom(c echo.Context) (kernel.Actor, error) {
	actor, err := kernel.NewActor(
		strings.TrimSpace(c.Request().Header.Get(HeaderActorID)),
		kernel.Role(strings.TrimSpace(c.Request().Header.Get(HeaderActorRole))),
	)
	if err != nil {
		return kernel.Actor{}, err
	}
	if err = actor.Role.Validate(); err != nil {
		return kernel.Actor{}, err
	}
	return actor, nil
}

func kindParam(raw string) (*item.Kind, error) {
	if raw == "" {
		return nil, nil
	}
	kind := item.Kind(strings.ToUpper(raw))
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	return &kind, nil
}

type submitDocumentRequest struct {
	Kind        item.Kind               `json:"kind"`
	Reference   string                  `json:"reference"`
	CustomerRef string                  `json:"customer_ref"`
	DocumentAt  time.Time               `json:"document_at"`
	Lines       []commands.DocumentLine `json:"lines"`
}

// SubmitDocument handles POST /api/v1/documents.
func (s *Server) SubmitDocument(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req submitDocumentRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	cmd, err := commands.NewSubmitDocumentCommand(req.Kind, req.Reference, req.CustomerRef, req.DocumentAt, req.Lines, actor)
	if err != nil {
		return s.fail(c, err)
	}
	doc, err := s.h.Documents.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

type transitionRequest struct {
	To            item.State `json:"to"`
	Justification string     `json:"justification"`
}

// TransitionItem handles POST /api/v1/items/:id/transitions.
func (s *Server) TransitionItem(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return s.fail(c, err)
	}
	id, err := itemIDParam(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req transitionRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	cmd, err := commands.NewTransitionItemCommand(id, req.To, actor, req.Justification)
	if err != nil {
		return s.fail(c, err)
	}
	result, err := s.h.Transitions.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListLegalNext handles GET /api/v1/items/:id/next?role=. Without a role the
// caller's own role is used.
func (s *Server) ListLegalNext(c echo.Context) error {
	id, err := itemIDParam(c)
	if err != nil {
		return s.fail(c, err)
	}
	role := kernel.Role(strings.ToUpper(c.QueryParam("role")))
	if role == "" {
		role = kernel.Role(c.Request().Header.Get(HeaderActorRole))
	}
	query, err := queries.NewListLegalNextQuery(id, role)
	if err != nil {
		return s.fail(c, err)
	}
	resp, err := s.h.NextStates.Handle(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetOpenItems handles GET /api/v1/items/open?kind=&owner=.
func (s *Server) GetOpenItems(c echo.Context) error {
	kind, err := kindParam(c.QueryParam("kind"))
	if err != nil {
		return s.fail(c, err)
	}
	query, err := queries.NewGetOpenItemsQuery(kind, c.QueryParam("owner"))
	if err != nil {
		return s.fail(c, err)
	}
	items, err := s.h.OpenItems.Handle(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err)
	}
	if items == nil {
		items = []queries.GetOpenItemsQueryResponse{}
	}
	return c.JSON(http.StatusOK, items)
}

// DeleteItem handles DELETE /api/v1/items/:id, a soft delete.
func (s *Server) DeleteItem(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return s.fail(c, err)
	}
	id, err := itemIDParam(c)
	if err != nil {
		return s.fail(c, err)
	}
	cmd, err := commands.NewDeleteItemCommand(id, actor)
	if err != nil {
		return s.fail(c, err)
	}
	if err = s.h.Deletes.Handle(c.Request().Context(), cmd); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type runRequest struct {
	Context orchestrator.RunContext `json:"context"`
	Options *orchestrator.Options   `json:"options"`
}

type runResponse struct {
	Result  orchestrator.RunResult `json:"result"`
	Summary orchestrator.Summary   `json:"summary"`
}

func autoApproves(opts orchestrator.Options) bool {
	return opts.AutoApproveQualification || opts.AutoApprovePricing || opts.AutoAcceptQuote ||
		opts.AutoApprovePO || opts.AutoSettle
}

// StartRun handles POST /api/v1/runs. The caller is the initiator; the
// approver defaults to the caller. Posting a returned context again resumes
// the run. A run that stops for a human decision answers 202.
func (s *Server) StartRun(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return s.fail(c, err)
	}
	opts := orchestrator.DefaultOptions(actor, actor)
	req := runRequest{Options: &opts}
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	opts.Initiator = actor

	if !s.h.Access.RoleHasAccess(actor.Role, rbac.ResourceWorkflowRun, rbac.ActionStart) {
		return s.fail(c, &errs.WorkflowError{
			Kind:    errs.KindAuthorization,
			Check:   errs.CheckRole,
			Message: "role " + string(actor.Role) + " may not start workflow runs",
		})
	}
	if autoApproves(opts) && !s.h.Access.RoleHasAccess(opts.Approver.Role, rbac.ResourceWorkflowRun, rbac.ActionApprove) {
		return s.fail(c, &errs.WorkflowError{
			Kind:    errs.KindAuthorization,
			Check:   errs.CheckRole,
			Message: "role " + string(opts.Approver.Role) + " may not pre-approve workflow decisions",
		})
	}

	result, summary, err := s.h.Runs.Run(c.Request().Context(), req.Context, opts)
	if err != nil {
		return s.fail(c, err)
	}
	status := http.StatusOK
	if result.Status == orchestrator.StatusRequiresAction {
		status = http.StatusAccepted
	}
	return c.JSON(status, runResponse{Result: result, Summary: summary})
}

type inspectionRequest struct {
	LotReference string `json:"lot_reference"`
	Passed       bool   `json:"passed"`
	Notes        string `json:"notes"`
}

// RecordInspection handles POST /api/v1/inspections.
func (s *Server) RecordInspection(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req inspectionRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	cmd, err := commands.NewRecordInspectionCommand(req.LotReference, req.Passed, req.Notes, actor)
	if err != nil {
		return s.fail(c, err)
	}
	outcome, err := s.h.Inspections.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, outcome)
}

type sweepRequest struct {
	Kind string `json:"kind"`
}

// SweepSLA handles POST /api/v1/sla/sweep, an on-demand SLA sweep.
func (s *Server) SweepSLA(c echo.Context) error {
	var req sweepRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	kind, err := kindParam(req.Kind)
	if err != nil {
		return s.fail(c, err)
	}
	cmd, err := commands.NewSweepSLACommand(kind, time.Time{})
	if err != nil {
		return s.fail(c, err)
	}
	result, err := s.h.Sweeps.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
