package logger

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// NameField is the field carrying the originating logger name.
const NameField = "logger_name"

const factoryCacheSize = 128

// Factory hands out child loggers bound with a logger_name field. Loggers
// are cached per name, so repeated lookups return the same instance.
type Factory struct {
	root  *zap.Logger
	cache *lru.Cache[string, *zap.Logger]
}

// NewFactory creates a factory deriving all loggers from root.
func NewFactory(root *zap.Logger) *Factory {
	if root == nil {
		root = zap.NewNop()
	}
	cache, _ := lru.New[string, *zap.Logger](factoryCacheSize)
	return &Factory{root: root, cache: cache}
}

// Get returns the logger for a dotted name such as "app.db.pool". An empty
// name returns the root logger unchanged.
func (f *Factory) Get(name string) *zap.Logger {
	if name == "" {
		return f.root
	}
	if l, ok := f.cache.Get(name); ok {
		return l
	}
	l := f.root.With(zap.String(NameField, FormatName(name)))
	f.cache.Add(name, l)
	return l
}

// Root returns the logger the factory derives from.
func (f *Factory) Root() *zap.Logger {
	return f.root
}

// FormatName renders "a.b.c" as " a -> b -> c ".
func FormatName(name string) string {
	return " " + strings.ReplaceAll(name, ".", " -> ") + " "
}
