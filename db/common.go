package db

import (
	"context"
	"embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/txrace/dbtypes"
	"github.com/ethpandaops/txrace/types"
)

//go:embed schema/pgsql/*.sql
var EmbedPgsqlSchema embed.FS

//go:embed schema/sqlite/*.sql
var EmbedSqliteSchema embed.FS

// goose keeps its base fs and dialect in package state
var gooseMutex sync.Mutex

// Store is the historical transaction log store.
type Store struct {
	logger      logrus.FieldLogger
	engine      dbtypes.DBEngineType
	db          *sqlx.DB
	writerMutex sync.Mutex
}

func checkDbConn(dbConn *sqlx.DB, dataBaseName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := dbConn.PingContext(ctx); err != nil {
		return fmt.Errorf("unable to ping %s: %w", dataBaseName, err)
	}
	return nil
}

func initSqlite(logger logrus.FieldLogger, config *types.SqliteDatabaseConfig) (*sqlx.DB, error) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing sqlite connection to %v with %v/%v conn limit", config.File, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)", config.File))
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}

	if err := checkDbConn(dbConn, "database"); err != nil {
		dbConn.Close()
		return nil, err
	}

	dbConn.SetConnMaxIdleTime(0)
	dbConn.SetConnMaxLifetime(0)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, nil
}

func initPgsql(logger logrus.FieldLogger, config *types.PgsqlDatabaseConfig) (*sqlx.DB, error) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing pgsql connection to %v with %v/%v conn limit", config.Host, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", config.Username, config.Password, config.Host, config.Port, config.Name))
	if err != nil {
		return nil, fmt.Errorf("error getting pgsql database: %w", err)
	}

	if err := checkDbConn(dbConn, "database"); err != nil {
		dbConn.Close()
		return nil, err
	}

	dbConn.SetConnMaxIdleTime(time.Second * 30)
	dbConn.SetConnMaxLifetime(time.Second * 60)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, nil
}

// NewStore connects to the configured log store.
func NewStore(logger logrus.FieldLogger, config *types.DatabaseConfig) (*Store, error) {
	logger = logger.WithField("module", "db")

	switch config.Engine {
	case "sqlite":
		if config.Sqlite == nil {
			return nil, fmt.Errorf("missing sqlite database config")
		}
		dbConn, err := initSqlite(logger, config.Sqlite)
		if err != nil {
			return nil, err
		}
		return NewStoreWithDB(logger, dbtypes.DBEngineSqlite, dbConn), nil
	case "pgsql":
		if config.Pgsql == nil {
			return nil, fmt.Errorf("missing pgsql database config")
		}
		dbConn, err := initPgsql(logger, config.Pgsql)
		if err != nil {
			return nil, err
		}
		return NewStoreWithDB(logger, dbtypes.DBEnginePgsql, dbConn), nil
	default:
		return nil, fmt.Errorf("unknown database engine type: %s", config.Engine)
	}
}

// NewStoreWithDB wraps an already opened connection.
func NewStoreWithDB(logger logrus.FieldLogger, engine dbtypes.DBEngineType, dbConn *sqlx.DB) *Store {
	return &Store{
		logger: logger,
		engine: engine,
		db:     dbConn,
	}
}

func (s *Store) Engine() dbtypes.DBEngineType {
	return s.engine
}

func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Errorf("Error closing db connection: %v", err)
	}
}

func (s *Store) RunDBTransaction(handler func(tx *sqlx.Tx) error) error {
	if s.engine == dbtypes.DBEngineSqlite {
		s.writerMutex.Lock()
		defer s.writerMutex.Unlock()
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting db transactions: %v", err)
	}

	defer tx.Rollback()

	err = handler(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("error committing db transaction: %v", err)
	}

	return nil
}

// ApplyEmbeddedDbSchema migrates the store. version -2 applies all migrations,
// -1 applies the next one, anything else migrates up to that version.
func (s *Store) ApplyEmbeddedDbSchema(version int64) error {
	gooseMutex.Lock()
	defer gooseMutex.Unlock()

	var engineDialect string
	var schemaDirectory string
	switch s.engine {
	case dbtypes.DBEnginePgsql:
		goose.SetBaseFS(EmbedPgsqlSchema)
		engineDialect = "postgres"
		schemaDirectory = "schema/pgsql"
	case dbtypes.DBEngineSqlite:
		goose.SetBaseFS(EmbedSqliteSchema)
		engineDialect = "sqlite3"
		schemaDirectory = "schema/sqlite"
	default:
		return fmt.Errorf("unknown database engine")
	}

	if err := goose.SetDialect(engineDialect); err != nil {
		return err
	}

	switch version {
	case -2:
		return goose.Up(s.db.DB, schemaDirectory)
	case -1:
		return goose.UpByOne(s.db.DB, schemaDirectory)
	default:
		return goose.UpTo(s.db.DB, schemaDirectory, version)
	}
}

func (s *Store) EngineQuery(queryMap map[dbtypes.DBEngineType]string) string {
	if queryMap[s.engine] != "" {
		return queryMap[s.engine]
	}
	return queryMap[dbtypes.DBEngineAny]
}
