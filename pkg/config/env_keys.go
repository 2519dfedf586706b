package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "estatedesk"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "ESTATEDESK_DB_DSN"
	EnvDBHost = "ESTATEDESK_DB_HOST"
	EnvDBUser = "ESTATEDESK_DB_USER"
	EnvDBName = "ESTATEDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
