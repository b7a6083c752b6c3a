package config

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type StorageConfig interface {
	GetStoreDriver() string
	GetDatabaseDSN() string
}

type Storage struct {
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseDSN string `env:"DATABASE_DSN"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetStoreDriver() string {
	return s.StoreDriver
}

func (s Storage) GetDatabaseDSN() string {
	return s.DatabaseDSN
}
