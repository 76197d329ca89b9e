package internal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// SecretPrefix marks a configuration value as a 1Password secret reference
const SecretPrefix = "op://"

var (
	// CommandContext allows overriding command creation for testing
	CommandContext = exec.CommandContext
	// LookPath allows overriding the lookup behavior for testing
	LookPath = exec.LookPath
)

// IsSecretReference reports whether value is a 1Password reference
func IsSecretReference(value string) bool {
	return strings.HasPrefix(value, SecretPrefix)
}

// ResolveSecretReference resolves a 1Password secret reference (e.g. op://vault/item/field).
// Values without the op:// prefix are returned unchanged. The boolean
// reports whether value was a reference.
func ResolveSecretReference(ctx context.Context, value string) (string, bool, error) {
	if !IsSecretReference(value) {
		return value, false, nil
	}

	parts := strings.Split(strings.TrimPrefix(value, SecretPrefix), "/")
	if len(parts) < 3 {
		return "", true, fmt.Errorf("malformed secret reference %q: want op://vault/item/field", value)
	}

	if _, err := LookPath("op"); err != nil {
		return "", true, fmt.Errorf("1Password CLI (op) not found in PATH: %w", err)
	}

	cmd := CommandContext(ctx, "op", "read", value)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", true, fmt.Errorf("failed to read secret from 1Password: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", true, fmt.Errorf("failed to read secret from 1Password: %w", err)
	}

	return strings.TrimSpace(string(output)), true, nil
}
