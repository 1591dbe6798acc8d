package container

import (
	"database/sql"

	"labstock/internal/bulkimport"
	"labstock/internal/equipment"
	"labstock/internal/importfile"
	"labstock/internal/lifecycle"
	"labstock/internal/repository"
	"labstock/internal/users"
	"labstock/pkg/metadata"
	"labstock/pkg/security"

	"go.uber.org/zap"
)

type Container struct {
	Repository       *repository.Repository
	EquipmentRepo    *repository.EquipmentRepository
	Ledger           *repository.LedgerRepository
	UserRepo         users.UserRepository
	Engine           *lifecycle.Engine
	LoginHandler     *security.LoginHandler
	EquipmentHandler *equipment.EquipmentHandler
	UserHandler      *users.UsersHandler
	ImportHandler    *importfile.Handler
	Logger           *zap.Logger
}

func NewAppContainer(db *sql.DB, log *zap.Logger) *Container {
	repo := repository.NewRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(repo)
	ledger := repository.NewLedgerRepository(repo)
	userRepo := users.NewRepository(repo)

	engine := lifecycle.NewEngine(equipmentRepo, ledger, userRepo, repo, metadata.EquipmentProfile)

	validator := bulkimport.NewValidator(equipmentRepo, metadata.EquipmentProfile)
	importer := bulkimport.NewImporter(validator, engine, ledger, repo, log)
	exporter := bulkimport.NewExporter(equipmentRepo)

	loginHandler := security.NewLoginHandler(repo, ledger, log)
	equipmentHandler := equipment.NewHandler(equipmentRepo, ledger, engine)
	userHandler := users.NewHandler(userRepo)
	importHandler := importfile.NewHandler(importer, exporter)

	return &Container{
		Repository:       repo,
		EquipmentRepo:    equipmentRepo,
		Ledger:           ledger,
		UserRepo:         userRepo,
		Engine:           engine,
		LoginHandler:     loginHandler,
		EquipmentHandler: equipmentHandler,
		UserHandler:      userHandler,
		ImportHandler:    importHandler,
		Logger:           log,
	}
}
