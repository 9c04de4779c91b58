package uow

import (
	"context"
	"errors"
)

// AfterCommit is a function that runs after a successful commit of the scope.
type AfterCommit func(ctx context.Context)

// Undo releases one resource acquired inside the scope.
type Undo func(ctx context.Context) error

// Scope tracks everything acquired by one unit of work. Resources are
// released in reverse order unless the scope commits.
type Scope struct {
	undo  []Undo
	hooks []AfterCommit
	done  bool
}

// Acquired registers the release of a resource the scope now holds.
func (s *Scope) Acquired(u Undo) {
	s.undo = append(s.undo, u)
}

// After registers a hook that runs only after a successful commit.
func (s *Scope) After(h AfterCommit) {
	s.hooks = append(s.hooks, h)
}

// Do runs fn inside a new scope. When fn fails every acquired resource is
// released before Do returns, using a context that survives cancellation of
// ctx. After success the after-commit hooks run.
func Do(ctx context.Context, fn func(ctx context.Context, s *Scope) error) error {
	s := &Scope{}

	if err := fn(ctx, s); err != nil {
		if rerr := s.rollback(context.WithoutCancel(ctx)); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	s.done = true
	s.undo = nil

	for _, h := range s.hooks {
		h(ctx)
	}

	return nil
}

func (s *Scope) rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true

	var errs []error
	for i := len(s.undo) - 1; i >= 0; i-- {
		if err := s.undo[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.undo = nil

	return errors.Join(errs...)
}
