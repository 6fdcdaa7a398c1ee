package migsql

// Declaration file suffixes.
const (
	ExtYAML = ".sql.yaml"
	ExtYML  = ".sql.yml"
	ExtHCL  = ".sql.hcl"
)

// DeclarationExtensions are the suffixes the declaration loader picks up.
var DeclarationExtensions = []string{ExtYAML, ExtYML, ExtHCL}

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// DefaultHistoryDir is the migration directory used when the config names
// none.
const DefaultHistoryDir = "migrations"
