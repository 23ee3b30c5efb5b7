package payroll

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	cfg "github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/infrastructure/persistence"
	"github.com/iota-uz/payroll-config/modules/payroll/infrastructure/persistence/schema"
	"github.com/iota-uz/payroll-config/modules/payroll/services"
	"github.com/iota-uz/payroll-config/pkg/configuration"
	"github.com/iota-uz/payroll-config/pkg/eventbus"
)

// MigrationFiles holds the goose migrations for the payroll tables.
var MigrationFiles = schema.FS

type Module struct {
	Audit      *services.AuditService
	Lifecycles *services.Lifecycles
	Dashboard  *services.ApprovalDashboard
	Bridge     *services.SigningBonusBridge
}

// NewModule wires the engine against the storage selected by
// PAYROLL_STORAGE. Postgres repositories take their pool or transaction
// from the request context. Memory storage has no user table, so every
// actor that commits a change is registered as it happens.
func NewModule(opts configuration.PayrollOptions, publisher eventbus.EventBus, logger *logrus.Logger) (*Module, error) {
	var (
		repos      services.Repositories
		auditRepo  auditlog.Repository
		identities services.IdentityStore
	)
	if publisher == nil {
		publisher = eventbus.NewEventPublisher(logger)
	}
	switch opts.Storage {
	case configuration.StorageMemory:
		directory := persistence.NewMemoryIdentityDirectory()
		publisher.Subscribe(registerActors(directory))
		repos = memoryRepositories()
		auditRepo = persistence.NewMemoryAuditLogRepository()
		identities = directory
	case configuration.StoragePostgres:
		repos = postgresRepositories(opts)
		auditRepo = persistence.NewAuditLogRepository(opts.RepositoryTimeout)
		identities = persistence.NewUserDirectory(opts.RepositoryTimeout)
	default:
		return nil, fmt.Errorf("unsupported payroll storage %q", opts.Storage)
	}
	if logger != nil {
		publisher.Subscribe(services.NewChangeLogger(logger))
	}
	return newModule(repos, auditRepo, identities, opts.DashboardConcurrency, publisher, logger), nil
}

func registerActors(directory *persistence.MemoryIdentityDirectory) func(*services.RecordChangedEvent) {
	return func(e *services.RecordChangedEvent) {
		if e.ActorID != nil {
			directory.Add(*e.ActorID)
		}
	}
}

func newModule(
	repos services.Repositories,
	auditRepo auditlog.Repository,
	identities services.IdentityStore,
	concurrency int,
	publisher eventbus.EventBus,
	logger *logrus.Logger,
) *Module {
	audit := services.NewAuditService(auditRepo, identities)
	lifecycles := services.NewLifecycles(repos, services.Dependencies{
		Audit:     audit,
		Publisher: publisher,
		Logger:    logger,
	})
	return &Module{
		Audit:      audit,
		Lifecycles: lifecycles,
		Dashboard:  services.NewApprovalDashboard(concurrency, lifecycles.Sources()...),
		Bridge:     services.NewSigningBonusBridge(lifecycles.SigningBonuses, logger),
	}
}

func (m *Module) Name() string {
	return "payroll"
}

func memoryRepositories() services.Repositories {
	return services.Repositories{
		PayGrades:           persistence.NewMemoryConfigurationRepository[cfg.PayGrade](),
		Allowances:          persistence.NewMemoryConfigurationRepository[cfg.Allowance](),
		TaxRules:            persistence.NewMemoryConfigurationRepository[cfg.TaxRule](),
		InsuranceBrackets:   persistence.NewMemoryConfigurationRepository[cfg.InsuranceBracket](),
		PayrollPolicies:     persistence.NewMemoryConfigurationRepository[cfg.PayrollPolicy](),
		SigningBonuses:      persistence.NewMemoryConfigurationRepository[cfg.SigningBonus](),
		PayTypes:            persistence.NewMemoryConfigurationRepository[cfg.PayType](),
		TerminationBenefits: persistence.NewMemoryConfigurationRepository[cfg.TerminationBenefit](),
		CompanySettings:     persistence.NewMemoryConfigurationRepository[cfg.CompanySettings](),
	}
}

func postgresRepositories(opts configuration.PayrollOptions) services.Repositories {
	t := opts.RepositoryTimeout
	return services.Repositories{
		PayGrades:           persistence.NewConfigurationRepository[cfg.PayGrade](t),
		Allowances:          persistence.NewConfigurationRepository[cfg.Allowance](t),
		TaxRules:            persistence.NewConfigurationRepository[cfg.TaxRule](t),
		InsuranceBrackets:   persistence.NewConfigurationRepository[cfg.InsuranceBracket](t),
		PayrollPolicies:     persistence.NewConfigurationRepository[cfg.PayrollPolicy](t),
		SigningBonuses:      persistence.NewConfigurationRepository[cfg.SigningBonus](t),
		PayTypes:            persistence.NewConfigurationRepository[cfg.PayType](t),
		TerminationBenefits: persistence.NewConfigurationRepository[cfg.TerminationBenefit](t),
		CompanySettings:     persistence.NewConfigurationRepository[cfg.CompanySettings](t),
	}
}
