package provision

import (
	"fmt"
	"regexp"
	"strings"

	"brandhub-core/internal/secrets"
)

// Postgres truncates identifiers at 63 bytes; derived names must fit with
// room for the suffix and the "_role" marker.
const (
	maxIdentifierLen = 63
	suffixLen        = 4
	roleMarker       = "_role"
)

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to interpolate into DDL.
// Everything the provisioner and router touch goes through this check.
func ValidIdentifier(s string) bool {
	return len(s) <= maxIdentifierLen && identPattern.MatchString(s)
}

// slugify reduces a brand name to the safe identifier alphabet: lowercase
// letters, digits and underscore, never starting with a digit.
func slugify(name string) string {
	var b strings.Builder
	lastUnderscore := true // also trims leading underscores
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		slug = "brand"
	}
	if slug[0] >= '0' && slug[0] <= '9' {
		slug = "b_" + slug
	}
	return slug
}

// DeriveIdentifiers derives the partition schema name and role name for a
// brand: "<slug>_<4 random chars>" and the same with a "_role" marker.
// The random suffix makes the pair globally unique even when two brand
// names slugify identically; the control-plane unique constraints are the
// final arbiter.
func DeriveIdentifiers(brandName string) (schemaName, dbRole string, err error) {
	slug := slugify(brandName)

	maxSlug := maxIdentifierLen - suffixLen - 1 - len(roleMarker)
	if len(slug) > maxSlug {
		slug = strings.TrimRight(slug[:maxSlug], "_")
	}

	suffix, err := secrets.NewSuffix(suffixLen)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive identifier suffix: %w", err)
	}

	schemaName = slug + "_" + suffix
	dbRole = schemaName + roleMarker

	if !ValidIdentifier(schemaName) || !ValidIdentifier(dbRole) {
		return "", "", fmt.Errorf("derived identifier is not safe: %q / %q", schemaName, dbRole)
	}
	return schemaName, dbRole, nil
}
