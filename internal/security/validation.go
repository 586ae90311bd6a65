package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ValidProjectNameRegex allows alphanumeric, dash, underscore, and dot
	ValidProjectNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

	validEnvNameRegex = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
)

// ValidateProjectName validates a project name for safety
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}

	if len(name) > 255 {
		return fmt.Errorf("project name too long (max 255 characters)")
	}

	if !ValidProjectNameRegex.MatchString(name) {
		return fmt.Errorf("invalid project name: must contain only alphanumeric, dash, underscore, or dot characters")
	}

	if name == "." || name == ".." {
		return fmt.Errorf("invalid project name: %s", name)
	}

	return nil
}

// ValidatePath performs general path validation
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	// Detectar null byte (ataque de path truncation)
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("path contains null bytes: %s", path)
	}

	if len(path) > 4096 {
		return fmt.Errorf("path too long: %d characters", len(path))
	}

	return nil
}

// ValidateEnvironmentVariable validates an environment variable name and value
func ValidateEnvironmentVariable(name, value string) error {
	if name == "" {
		return fmt.Errorf("environment variable name cannot be empty")
	}

	// Variable names should be alphanumeric + underscore
	if !validEnvNameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment variable name: %s", name)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("environment variable value contains null byte")
	}

	return nil
}

// IsPathWithinDirectory checks if a target path is within a given base directory
// Parameters:
//   - targetPath: the file/directory path to check (e.g., "/mnt/projects/demo/shot.blend")
//   - basePath: the base directory to check against (e.g., "/mnt/projects/demo")
//
// Returns:
//   - bool: true if targetPath is within basePath
//   - error: non-nil if paths cannot be resolved or if relative paths are used
func IsPathWithinDirectory(targetPath, basePath string) (bool, error) {
	// 1. Validar que ambos os caminhos são absolutos
	if !filepath.IsAbs(targetPath) {
		return false, fmt.Errorf("target path must be absolute, got relative path: %s", targetPath)
	}
	if !filepath.IsAbs(basePath) {
		return false, fmt.Errorf("base path must be absolute, got relative path: %s", basePath)
	}

	// 2. Limpar e normalizar ambos os caminhos
	cleanBase := filepath.Clean(basePath)
	cleanTarget := filepath.Clean(targetPath)

	// 3. Verificar se target começa com base
	rel, err := filepath.Rel(cleanBase, cleanTarget)
	if err != nil {
		return false, fmt.Errorf("failed to compute relative path: %w", err)
	}

	// 4. Se rel começa com "..", o target está fora do base
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}

	// 5. Se rel é ".", o target é exatamente o base (considerado "dentro")
	return true, nil
}
