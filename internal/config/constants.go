package config

const (
	// DefaultIterations is the number of calls per trial.
	DefaultIterations = 100
	// SchemaMigrationsTable tracks applied result store migrations.
	SchemaMigrationsTable = "schema_migrations_protobench"
	// EnvFile is the optional dotenv file read at startup.
	EnvFile = ".env"
)
