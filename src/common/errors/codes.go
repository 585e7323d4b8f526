package errors

// Common error codes used across domains
const (
	CodeNotFound      Code = "not_found"
	CodeInvalidValue  Code = "invalid_value"
	CodeMissingField  Code = "missing_field"
	CodeCommandFailed Code = "command_failed"
	CodeNetwork       Code = "network_error"
	CodeInternal      Code = "internal_error"
)

// Process exit codes reported by the CLI
const (
	ExitFailure = 1 // generic pipeline failure
	ExitConfig  = 2 // configuration error, detected before any side effect
)

// ============================================================================
// Configuration Errors
// ============================================================================

var (
	// ErrDeviceRequired is returned when no target device codename is configured
	ErrDeviceRequired = New(DomainConfig, CodeMissingField, ExitConfig,
		"Target device is not set")

	// ErrKernelDirInvalid is returned when the kernel source directory is missing
	ErrKernelDirInvalid = New(DomainConfig, CodeInvalidValue, ExitConfig,
		"Kernel source directory does not exist")

	// ErrProfileInvalid is returned when a device profile file cannot be parsed
	ErrProfileInvalid = New(DomainConfig, CodeInvalidValue, ExitConfig,
		"Invalid device profile file")
)

// ============================================================================
// Toolchain Errors
// ============================================================================

var (
	// ErrToolchainDownload is returned when the toolchain tarball cannot be fetched
	ErrToolchainDownload = New(DomainToolchain, CodeNetwork, ExitFailure,
		"Failed to download toolchain")

	// ErrToolchainExtract is returned when the toolchain tarball cannot be unpacked
	ErrToolchainExtract = New(DomainToolchain, "extract_failed", ExitFailure,
		"Failed to extract toolchain")

	// ErrToolchainMissingBinaries is returned when required build binaries are absent
	ErrToolchainMissingBinaries = New(DomainToolchain, CodeNotFound, ExitFailure,
		"Required toolchain binaries are missing")
)

// ============================================================================
// Build Errors
// ============================================================================

var (
	// ErrDefconfig is returned when the configure step fails
	ErrDefconfig = New(DomainBuild, "defconfig_failed", ExitFailure,
		"Failed to generate kernel configuration")

	// ErrCompile is returned when the compile step exits non-zero
	ErrCompile = New(DomainBuild, CodeCommandFailed, ExitFailure,
		"Compilation failed!")

	// ErrArtifactMissing is returned when the kernel image is absent after a build
	ErrArtifactMissing = New(DomainBuild, CodeNotFound, ExitFailure,
		"Compilation failed!")
)

// ============================================================================
// Packaging Errors
// ============================================================================

var (
	// ErrTemplateCheckout is returned when the packaging template cannot be cloned
	ErrTemplateCheckout = New(DomainPackage, "checkout_failed", ExitFailure,
		"Failed to fetch packaging template")

	// ErrArchive is returned when the flashable archive cannot be assembled
	ErrArchive = New(DomainPackage, "archive_failed", ExitFailure,
		"Failed to create flashable archive")
)

// ============================================================================
// Notification and Mirror Errors
// ============================================================================

var (
	// ErrNotifyUpload is returned when the chat upload fails. Callers treat
	// this as a warning, never as a pipeline failure.
	ErrNotifyUpload = New(DomainNotify, "upload_failed", ExitFailure,
		"Failed to upload archive to chat")

	// ErrMirrorUpload is returned when the artifact mirror upload fails
	ErrMirrorUpload = New(DomainStorage, "upload_failed", ExitFailure,
		"Failed to upload archive to mirror")
)

// ============================================================================
// History Errors
// ============================================================================

var (
	// ErrHistoryOpen is returned when the history database cannot be opened
	ErrHistoryOpen = New(DomainHistory, "open_failed", ExitFailure,
		"Failed to open build history database")

	// ErrHistoryQuery is returned when a history query fails
	ErrHistoryQuery = New(DomainHistory, "query_failed", ExitFailure,
		"Build history query failed")
)
