package cmd

import (
	"fmt"
	"log/slog"
	"time"

	httpin "tradeflow/internal/adapters/in/http"
	"tradeflow/internal/adapters/out/memory"
	"tradeflow/internal/adapters/out/notify"
	"tradeflow/internal/adapters/out/postgres"
	"tradeflow/internal/adapters/out/postgres/directoryrepo"
	"tradeflow/internal/adapters/out/postgres/inventoryrepo"
	"tradeflow/internal/adapters/out/rbac"
	"tradeflow/internal/core/application/orchestrator"
	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/application/usecases/queries"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/domain/services"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/jobs"

	"gorm.io/gorm"
)

const defaultSLAWarningThreshold = 4 * time.Hour

type CompositionRoot struct {
	configs Config
	logger  *slog.Logger
	now     commands.Clock

	gormDB     *gorm.DB
	store      *memory.Store
	uowFactory ports.UnitOfWorkFactory

	inventory   ports.Inventory
	vendors     ports.VendorDirectory
	inspections ports.InspectionRepository
	credit      ports.CreditChecker
	activity    ports.ActivityLog

	access    *rbac.Catalog
	validator *services.Validator
	hub       *notify.Hub
	notifier  ports.Notifier
	policy    commands.SLAPolicy
}

// NewCompositionRoot wires the adapters selected by configs. A nil gormDB is
// only accepted with the memory storage driver.
func NewCompositionRoot(configs Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{configs: configs, logger: logger, now: time.Now}

	switch configs.StorageDriver {
	case StorageDriverPostgres:
		if gormDB == nil {
			return nil, fmt.Errorf("storage driver %s needs a database connection", configs.StorageDriver)
		}
		c.gormDB = gormDB
		c.uowFactory = postgres.NewGormUnitOfWorkFactory(gormDB)
		c.inventory = inventoryrepo.NewGormInventory(gormDB)
		c.vendors = directoryrepo.NewGormVendorDirectory(gormDB)
		c.inspections = directoryrepo.NewGormInspectionRepository(gormDB)
		c.credit = directoryrepo.NewGormCreditLedger(gormDB)
		c.activity = directoryrepo.NewGormActivityLog(gormDB)
	case StorageDriverMemory, "":
		c.store = memory.NewStore()
		c.uowFactory = memory.NewUnitOfWorkFactory(c.store)
		c.inventory = c.store.Inventory()
		c.vendors = memory.NewVendorDirectory()
		c.inspections = memory.NewInspectionRepository()
		c.credit = memory.NewCreditLedger()
		c.activity = memory.NewActivityLog()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", configs.StorageDriver)
	}

	table, err := c.loadTransitionTable()
	if err != nil {
		return nil, err
	}
	if c.access, err = c.loadRoleCatalog(); err != nil {
		return nil, err
	}
	if c.validator, err = services.NewValidator(table, c.access, services.NewPreconditions(c.credit)); err != nil {
		return nil, err
	}
	if c.policy, err = slaPolicy(configs); err != nil {
		return nil, err
	}

	c.hub = notify.NewHub(logger)
	c.notifier = notify.NewFanout(notify.NewLogNotifier(logger), c.hub)
	return c, nil
}

func (c *CompositionRoot) loadTransitionTable() (*transition.Table, error) {
	if c.configs.TransitionTableFile != "" {
		return transition.LoadFile(c.configs.TransitionTableFile)
	}
	return transition.Default()
}

func (c *CompositionRoot) loadRoleCatalog() (*rbac.Catalog, error) {
	if c.configs.RoleCatalogFile != "" {
		return rbac.LoadFile(c.configs.RoleCatalogFile)
	}
	return rbac.Default()
}

func slaPolicy(configs Config) (commands.SLAPolicy, error) {
	policy := commands.SLAPolicy{
		WarningThreshold: defaultSLAWarningThreshold,
		EscalationRole:   kernel.RoleDirector,
	}
	if configs.SLAWarningThreshold != "" {
		d, err := time.ParseDuration(configs.SLAWarningThreshold)
		if err != nil {
			return commands.SLAPolicy{}, fmt.Errorf("parse SLA_WARNING_THRESHOLD: %w", err)
		}
		policy.WarningThreshold = d
	}
	if configs.SLAEscalationRole != "" {
		role := kernel.Role(configs.SLAEscalationRole)
		if err := role.Validate(); err != nil {
			return commands.SLAPolicy{}, fmt.Errorf("SLA_ESCALATION_ROLE: %w", err)
		}
		policy.EscalationRole = role
	}
	return policy, nil
}

// Hub is the websocket broadcaster; the caller runs its dispatch loop.
func (c *CompositionRoot) Hub() *notify.Hub {
	return c.hub
}

func (c *CompositionRoot) commandUoWFactory() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateTransitionItemCommandHandler() (*commands.TransitionItemCommandHandler, error) {
	f := c.commandUoWFactory()
	runner := commands.NewSideEffectRunner(f, c.notifier, c.logger, c.now)
	return commands.NewTransitionItemCommandHandler(f, c.validator, runner, c.logger, c.now)
}

func (c *CompositionRoot) CreateSubmitDocumentCommandHandler() (*commands.SubmitDocumentCommandHandler, error) {
	return commands.NewSubmitDocumentCommandHandler(c.commandUoWFactory(), c.logger, c.now)
}

func (c *CompositionRoot) CreateDeleteItemCommandHandler() (*commands.DeleteItemCommandHandler, error) {
	return commands.NewDeleteItemCommandHandler(c.commandUoWFactory(), c.now)
}

func (c *CompositionRoot) CreateRecordInspectionCommandHandler() (*commands.RecordInspectionCommandHandler, error) {
	return commands.NewRecordInspectionCommandHandler(c.inspections, c.access, c.logger, c.now)
}

func (c *CompositionRoot) CreateSweepSLACommandHandler() (*commands.SweepSLACommandHandler, error) {
	return commands.NewSweepSLACommandHandler(c.commandUoWFactory(), c.notifier, c.policy, c.logger, c.now)
}

func (c *CompositionRoot) CreateListLegalNextQueryHandler() (queries.ListLegalNextQueryHandler, error) {
	return queries.NewListLegalNextQueryHandler(c.uowFactory, c.validator)
}

func (c *CompositionRoot) CreateGetOpenItemsQueryHandler() queries.GetOpenItemsHandler {
	if c.gormDB != nil {
		return queries.NewGetOpenItemsQueryHandler(c.gormDB)
	}
	return queries.NewSourceGetOpenItemsQueryHandler(c.store)
}

func (c *CompositionRoot) CreateOrchestrator() (*orchestrator.Orchestrator, error) {
	f := c.commandUoWFactory()
	executor, err := c.CreateTransitionItemCommandHandler()
	if err != nil {
		return nil, err
	}
	documents, err := c.CreateSubmitDocumentCommandHandler()
	if err != nil {
		return nil, err
	}
	linker, err := commands.NewLinkOrderItemCommandHandler(f, c.now)
	if err != nil {
		return nil, err
	}
	pricer, err := commands.NewPriceItemCommandHandler(f, c.now)
	if err != nil {
		return nil, err
	}
	records, err := commands.NewCreateRecordCommandHandler(f, c.now)
	if err != nil {
		return nil, err
	}
	issuer, err := commands.NewIssuePurchaseOrderCommandHandler(f, c.now)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(orchestrator.Deps{
		Items:       c.uowFactory,
		Validator:   c.validator,
		Executor:    executor,
		Documents:   documents,
		Linker:      linker,
		Pricer:      pricer,
		Records:     records,
		POIssuer:    issuer,
		Inventory:   c.inventory,
		Vendors:     c.vendors,
		Inspections: c.inspections,
		Activity:    c.activity,
		Logger:      c.logger,
		Clock:       c.now,
	})
}

func (c *CompositionRoot) CreateServer() (*httpin.Server, error) {
	documents, err := c.CreateSubmitDocumentCommandHandler()
	if err != nil {
		return nil, err
	}
	executor, err := c.CreateTransitionItemCommandHandler()
	if err != nil {
		return nil, err
	}
	deletes, err := c.CreateDeleteItemCommandHandler()
	if err != nil {
		return nil, err
	}
	inspections, err := c.CreateRecordInspectionCommandHandler()
	if err != nil {
		return nil, err
	}
	sweeps, err := c.CreateSweepSLACommandHandler()
	if err != nil {
		return nil, err
	}
	next, err := c.CreateListLegalNextQueryHandler()
	if err != nil {
		return nil, err
	}
	runs, err := c.CreateOrchestrator()
	if err != nil {
		return nil, err
	}
	return httpin.NewServer(httpin.Handlers{
		Documents:   documents,
		Transitions: executor,
		Deletes:     deletes,
		Inspections: inspections,
		Sweeps:      sweeps,
		NextStates:  next,
		OpenItems:   c.CreateGetOpenItemsQueryHandler(),
		Runs:        runs,
		Access:      c.access,
		Hub:         c.hub,
	}, c.logger)
}

func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	sweeps, err := c.CreateSweepSLACommandHandler()
	if err != nil {
		return nil, err
	}
	sweepJob, err := jobs.NewSLASweepJob(sweeps, c.configs.SLASweepSchedule, c.logger)
	if err != nil {
		return nil, err
	}
	return jobs.NewJobManager(sweepJob), nil
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
