package core

import (
	"fmt"
	"strings"
)

const (
	// EngineName is the toolkit engine instance name passed to launched hosts
	EngineName = "tk-blender"
	// EngineNiceName is used as the title of user-facing messages
	EngineNiceName = "ShotGrid Blender Engine"
	// ApplicationName is the display name of every discovered candidate
	ApplicationName = "Blender"
	// MinimumSupportedVersion is the oldest Blender release the engine supports
	MinimumSupportedVersion = "2.8"
	// BlankVersion marks a candidate found through a template without version info.
	// It is deliberately non-empty so membership checks against it succeed.
	BlankVersion = " "
	// UntitledFile is the file name Blender reports for unsaved documents
	UntitledFile = "Untitled.blend"
)

// Environment variables read or written by tkblender
const (
	EnvBinDir        = "BLENDER_BIN_DIR"
	EnvExtraArgs     = "SGTK_BLENDER_CMD_EXTRA_ARGS"
	EnvDebug         = "TK_DEBUG"
	EnvUserScripts   = "BLENDER_USER_SCRIPTS"
	EnvPySidePath    = "PYSIDE2_PYTHONPATH"
	EnvModulePath    = "SGTK_MODULE_PATH"
	EnvEngineStartup = "SGTK_BLENDER_ENGINE_STARTUP"
	EnvEnginePython  = "SGTK_BLENDER_ENGINE_PYTHON"
	EnvEngine        = "SGTK_ENGINE"
	EnvContext       = "SGTK_CONTEXT"
	EnvFileToOpen    = "SGTK_FILE_TO_OPEN"
)

// SoftwareCandidate is one discovered, launchable Blender installation
type SoftwareCandidate struct {
	ExecutablePath string   `json:"executable_path"`
	Version        string   `json:"version"`
	DisplayName    string   `json:"display_name"`
	IconPath       string   `json:"icon_path"`
	Args           []string `json:"args"`
}

// HasVersion reports whether the candidate carries version information
func (c SoftwareCandidate) HasVersion() bool {
	return strings.TrimSpace(c.Version) != ""
}

// String returns a short human-readable description
func (c SoftwareCandidate) String() string {
	if !c.HasVersion() {
		return fmt.Sprintf("%s (%s)", c.DisplayName, c.ExecutablePath)
	}
	return fmt.Sprintf("%s %s (%s)", c.DisplayName, c.Version, c.ExecutablePath)
}

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneral         = 1
	ExitInvalidArgs     = 2
	ExitLaunchFailed    = 3
	ExitNoCandidates    = 4
	ExitDatabase        = 5
	ExitPermission      = 6
	ExitCommandNotFound = 8
	ExitInterrupted     = 130
)
