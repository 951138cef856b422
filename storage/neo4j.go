package storage

import (
	"context"
	"fmt"
	"time"

	"scholarlens/config"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4jClient kapselt den Treiber für den optionalen Zitationsgraphen.
type Neo4jClient struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *zap.Logger
}

// NewNeo4jClient verbindet sich mit Neo4j. Ohne NEO4J_URI wird (nil, nil) geliefert.
func NewNeo4jClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Neo4jClient, error) {
	if cfg.Neo4jURI == "" {
		return nil, nil
	}

	timeout := time.Duration(cfg.Neo4jTimeoutSeconds) * time.Second
	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.Neo4jMaxPoolSize
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Neo4jClient{
		Driver:   driver,
		Database: cfg.Neo4jDatabase,
		log:      log.With(zap.String("client", "neo4j")),
	}, nil
}

// WriteSession öffnet eine Schreib-Session auf der konfigurierten Datenbank.
func (c *Neo4jClient) WriteSession(ctx context.Context) neo4j.SessionWithContext {
	return c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
}

// Close schließt den Treiber; nil-sicher.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
