package envvar

const (
	// BinderyEnv is the environment variable used to determine the environment
	BinderyEnv = "BINDERY_ENV"

	// BinderyPersonalPath is the environment variable overriding the personal data directory
	BinderyPersonalPath = "BINDERY_PERSONAL_PATH"

	// BinderyModelsPath is the environment variable overriding the models directory
	BinderyModelsPath = "BINDERY_MODELS_PATH"

	// BinderyZooPath is the environment variable overriding the bindings zoo directory
	BinderyZooPath = "BINDERY_ZOO_PATH"
)
