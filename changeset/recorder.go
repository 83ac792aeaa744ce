package changeset

import (
	"context"
	"fmt"
	"slices"
)

// Recorder копит выражения вместо выполнения. Используется для предпросмотра
// нативных скриптов; рефлексия, если нужна, идет в source.
type Recorder struct {
	source     Executor
	statements []string
}

// NewRecorder возвращает Recorder. source может быть nil.
func NewRecorder(source Executor) *Recorder {
	return &Recorder{source: source}
}

func (r *Recorder) Exec(_ context.Context, stmt string, args ...any) error {
	if len(args) > 0 {
		stmt = fmt.Sprintf("%s -- %v", stmt, args)
	}
	r.statements = append(r.statements, stmt)
	return nil
}

func (r *Recorder) Reflect(ctx context.Context, table string) (*Table, error) {
	if r.source == nil {
		return nil, fmt.Errorf("%w: %s", ErrReflectUnavailable, table)
	}
	return r.source.Reflect(ctx, table)
}

func (r *Recorder) HasTable(ctx context.Context, table string) (bool, error) {
	if r.source == nil {
		return false, nil
	}
	return r.source.HasTable(ctx, table)
}

func (r *Recorder) Statements() []string {
	return slices.Clone(r.statements)
}

func (r *Recorder) Reset() {
	r.statements = nil
}
