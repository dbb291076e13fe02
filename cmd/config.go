package cmd

import "fmt"

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	HTTPPort            string
	StorageDriver       string
	DBHost              string
	DBPort              string
	DBUser              string
	DBPassword          string
	DBName              string
	DBSslMode           string
	TransitionTableFile string
	RoleCatalogFile     string
	SLASweepSchedule    string
	SLAWarningThreshold string
	SLAEscalationRole   string
	SeedFile            string
}

// DSN is the libpq connection string for the postgres driver.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}
