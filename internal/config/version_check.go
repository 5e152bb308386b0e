package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ludo-technologies/pystage/internal/version"
)

// CheckRequiredVersion verifies the running binary satisfies constraint.
// Development builds satisfy every constraint.
func CheckRequiredVersion(constraint string) error {
	return checkVersion(constraint, version.Version)
}

func checkVersion(constraint, current string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid required_version %q: %w", constraint, err)
	}
	if current == "" || current == "dev" {
		return nil
	}

	v, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return fmt.Errorf("cannot compare version %q: %w", current, err)
	}
	if ok, reasons := c.Validate(v); !ok {
		msg := make([]string, len(reasons))
		for i, r := range reasons {
			msg[i] = r.Error()
		}
		return fmt.Errorf("pystage %s does not satisfy required_version %q: %s", current, constraint, strings.Join(msg, "; "))
	}
	return nil
}
