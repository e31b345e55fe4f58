package usecase

import (
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

// CategoryFilter decides whether a Square category is excluded from sync.
// A category matches an excluded token by id, by exact name, or by name ignoring
// case; in substring mode a case-insensitive substring of the name also matches.
type CategoryFilter struct {
	tokens    map[string]struct{}
	lowered   []string
	substring bool
	logger    *zap.Logger
}

// NewCategoryFilter creates a filter for the given excluded ids/names
func NewCategoryFilter(excluded []string, substring bool, log *zap.Logger) *CategoryFilter {
	f := &CategoryFilter{
		tokens:    make(map[string]struct{}, len(excluded)),
		substring: substring,
		logger:    logger.OrNop(log),
	}

	for _, token := range excluded {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		f.tokens[token] = struct{}{}
		f.lowered = append(f.lowered, strings.ToLower(token))
	}

	return f
}

// IsExcluded reports whether the category is excluded. A category without a name
// is never excluded.
func (f *CategoryFilter) IsExcluded(categoryID, categoryName string) bool {
	if strings.TrimSpace(categoryName) == "" {
		return false
	}

	if _, ok := f.tokens[categoryID]; ok && categoryID != "" {
		f.logger.Debug("category excluded by id", zap.String("category_id", categoryID))
		return true
	}

	if _, ok := f.tokens[categoryName]; ok {
		f.logger.Debug("category excluded by name", zap.String("category", categoryName))
		return true
	}

	name := strings.ToLower(strings.TrimSpace(categoryName))
	for _, token := range f.lowered {
		if token == name {
			f.logger.Debug("category excluded by case-insensitive name", zap.String("category", categoryName))
			return true
		}
	}

	if f.substring {
		for _, token := range f.lowered {
			if strings.Contains(name, token) {
				f.logger.Debug("category excluded by substring",
					zap.String("category", categoryName),
					zap.String("token", token))
				return true
			}
		}
	}

	return false
}

// Excluded returns the configured tokens in their original spelling, sorted
func (f *CategoryFilter) Excluded() []string {
	return slices.Sorted(maps.Keys(f.tokens))
}
