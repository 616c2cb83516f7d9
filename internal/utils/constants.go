package utils

// Well-known file and directory names used across the tool.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// ExclusionPrefix marks patterns that exclude root-level directories.
	ExclusionPrefix = "EXCL:"
	// ConfigFileName is the application configuration file name.
	ConfigFileName = ".treesnap.yaml"
	// GlobalConfigDirectoryName is the global configuration directory under the user's home.
	GlobalConfigDirectoryName = ".config/treesnap"
)

// LoggerInitializationFailedMessageFormat reports a logger construction failure.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes fatal command errors.
const ApplicationExecutionFailedMessage = "application execution failed"
