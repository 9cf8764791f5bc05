package app

import (
	"fmt"
	"log"
	"sync"

	"zenbridge-backend/internal/clients"
	"zenbridge-backend/internal/config"
	"zenbridge-backend/internal/db"
	"zenbridge-backend/internal/events"
	"zenbridge-backend/internal/handlers"
	"zenbridge-backend/internal/models"
	"zenbridge-backend/internal/repository"
	"zenbridge-backend/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer wires repositories, services and handlers.
type ServiceContainer struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// Repositories
	ComputationRepo repository.ComputationRepository

	// Core services
	Publisher   events.Publisher
	Fabric      *clients.LocalFabric
	Reserve     *services.ReserveService
	Coordinator *services.CoordinatorService

	// HTTP handlers
	BridgeHandler *handlers.BridgeHandler
	AdminHandler  *handlers.AdminHandler
}

// Container global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once from loaded configuration.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("Initializing service container...")

		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})

		container := &ServiceContainer{
			DB:     db.DB,
			Logger: logger,
		}

		if db.DB != nil {
			container.ComputationRepo = repository.NewComputationRepository(db.DB)
		}

		if err := container.initPublisher(); err != nil {
			initErr = err
			return
		}
		if err := container.initServices(); err != nil {
			initErr = err
			return
		}
		container.initHandlers()

		Container = container
		log.Println("Service container initialized")
	})

	if initErr != nil {
		return nil, initErr
	}
	return Container, nil
}

func (c *ServiceContainer) initPublisher() error {
	if config.AppConfig.NATS.URL == "" {
		log.Println("No NATS URL configured, lifecycle events disabled")
		c.Publisher = events.NoopPublisher{}
		return nil
	}

	publisher, err := events.NewNATSPublisher(config.AppConfig.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to initialize NATS publisher: %w", err)
	}
	c.Publisher = publisher
	return nil
}

func (c *ServiceContainer) initServices() error {
	bridgeCfg := config.AppConfig.Bridge

	reserve, err := services.NewReserveService(
		c.DB,
		c.Publisher,
		models.ReserveAsset(bridgeCfg.ReserveAsset),
		bridgeCfg.MaxMintPerTx,
		bridgeCfg.BootstrapBTC,
		bridgeCfg.BootstrapZEC,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize reserve service: %w", err)
	}
	c.Reserve = reserve

	// Oracles resolve private reference data inside the boundary. They are
	// nil until a chain indexer is attached; the affected transforms then
	// abort with an oracle-not-configured reason.
	c.Fabric = clients.NewLocalFabric(nil, nil)

	if c.ComputationRepo == nil {
		return fmt.Errorf("computation repository requires a database connection")
	}

	c.Coordinator = services.NewCoordinatorService(
		c.ComputationRepo,
		c.Fabric,
		c.Publisher,
		c.Reserve,
		bridgeCfg.RelayerLanes,
	)
	return nil
}

func (c *ServiceContainer) initHandlers() {
	c.BridgeHandler = handlers.NewBridgeHandler(c.Coordinator, c.Logger)
	c.AdminHandler = handlers.NewAdminHandler(c.Reserve, c.Logger)
}

// Shutdown drains in-flight computations and closes the event stream.
func (c *ServiceContainer) Shutdown() {
	if c.Fabric != nil {
		c.Fabric.Wait()
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	log.Println("Service container shut down")
}
