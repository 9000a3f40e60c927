package sshutil

import (
	"os"
	"sort"
	"strings"

	"gpuwatch/internal/errors"
)

// Aliases returns the concrete host aliases defined in the SSH config file
// at configPath (wildcard patterns are skipped). A missing config file
// yields an empty list, not an error.
func Aliases(configPath string) ([]string, error) {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Can't read SSH config "+configPath)
	}

	seen := make(map[string]bool)
	var aliases []string

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?") || seen[alias] {
				continue
			}
			seen[alias] = true
			aliases = append(aliases, alias)
		}
	}

	sort.Strings(aliases)
	return aliases, nil
}

// HasAlias reports whether alias resolves to an entry in the SSH config file.
// Hosts that are plain hostnames still connect fine without an entry, so a
// false result is informational, not an error condition.
func HasAlias(configPath, alias string) bool {
	aliases, err := Aliases(configPath)
	if err != nil {
		return false
	}
	for _, a := range aliases {
		if a == alias {
			return true
		}
	}
	return false
}
