package schema

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// NamingConvention maps a metadata name to a storage identifier
type NamingConvention func(name string) string

// IdentityNaming passes names through unchanged
func IdentityNaming(name string) string {
	return name
}

// CamelCaseNaming lower-cases the first letter (CustomerID -> customerID)
func CamelCaseNaming(name string) string {
	return lowerFirst(name)
}

// SnakeCaseNaming converts to snake_case (CustomerID -> customer_id)
func SnakeCaseNaming(name string) string {
	return toSnakeCase(name)
}

// ParseNamingConvention resolves a convention by its metadata name.
// An empty name or "noChange" yields the identity transform.
func ParseNamingConvention(name string) (NamingConvention, error) {
	switch strings.ToLower(name) {
	case "", "none", "nochange", "identity":
		return IdentityNaming, nil
	case "camelcase":
		return CamelCaseNaming, nil
	case "snake_case", "snakecase":
		return SnakeCaseNaming, nil
	default:
		return nil, fmt.Errorf("unknown naming convention %q", name)
	}
}

// TableNameFor returns the storage table name for an entity type.
// The resource name wins when present, otherwise the pluralized type name is used.
func TableNameFor(entityName, resourceName string, naming NamingConvention) string {
	if naming == nil {
		naming = IdentityNaming
	}
	if resourceName != "" {
		return naming(resourceName)
	}
	return naming(inflection.Plural(entityName))
}

// JoinTableName derives the many-to-many table name from both entity names in sorted order
func JoinTableName(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + b
}

// toSnakeCase converts a string to snake_case
// Handles acronyms (HTTPRequest -> http_request, customerID -> customer_id)
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && len(result) > 0 {
				prev := runes[i-1]
				if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
					result = append(result, '_')
				} else if prev >= 'A' && prev <= 'Z' && i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
					result = append(result, '_')
				}
			}
			result = append(result, r+('a'-'A'))
			continue
		}
		result = append(result, r)
	}

	return string(result)
}
