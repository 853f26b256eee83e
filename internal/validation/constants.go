package validation

const (
	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores anything longer
)
