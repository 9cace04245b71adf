// Package cache provides read caches for immutable survey templates.
package cache

import (
	"context"

	"github.com/okian/learnstyle/internal/domain/model"
)

// TemplateCache caches templates by id. A miss is reported as ok=false with
// a nil error; err is only set when the cache itself failed.
type TemplateCache interface {
	Get(ctx context.Context, id string) (t model.Template, ok bool, err error)
	Set(ctx context.Context, t model.Template) error
	Close() error
}
