package mutation

import (
	"context"
	"errors"
	"slices"

	"github.com/embld/contentcore/auth"
	"github.com/embld/contentcore/invalidation"
	"github.com/embld/contentcore/observe"
	"github.com/embld/contentcore/store"
)

// Config configures a Coordinator.
type Config struct {
	// Store receives the writes. Required.
	Store store.Store

	// Publisher receives invalidation tags after successful writes. Nil
	// disables publishing.
	Publisher invalidation.Publisher

	// Logger records denials and store failures.
	Logger observe.Logger

	// Tracer and Metrics instrument every operation. Nil disables them.
	Tracer  observe.Tracer
	Metrics observe.Metrics
}

// Request describes one mutation.
type Request struct {
	Schema *Schema

	// ResourceID targets an existing row. Empty means create.
	ResourceID string

	// Payload carries the caller's fields. Fields outside the schema's
	// allow-list are dropped; the id and owner columns are always ignored.
	Payload map[string]any

	// Assign sets columns the caller derives from the route rather than the
	// payload, such as a parent id. Used on create only; the id and owner
	// columns are ignored.
	Assign store.Row

	// Scope narrows updates and deletes, typically to a parent row. A target
	// outside the scope is reported as not found.
	Scope store.Filter

	// Tags are published on success in addition to Schema.Tags.
	Tags []string
}

// Coordinator performs ownership-checked mutations.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Ownership: non-admin updates and deletes are scoped by owner in the
//     store call itself, so a concurrent ownership change cannot be raced.
//   - Coherence: tags are published synchronously after a successful write
//     and before the method returns. Nothing is published on failure.
//   - Errors: every failure is an *Error.
type Coordinator struct {
	store     store.Store
	publisher invalidation.Publisher
	logger    observe.Logger
	mw        *observe.Middleware
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Coordinator{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    logger,
		// The coordinator logs by kind itself.
		mw: observe.NewMiddleware(cfg.Tracer, cfg.Metrics, observe.NopLogger()),
	}, nil
}

// Upsert creates a resource when req.ResourceID is empty and updates it
// otherwise. It returns the resource id.
func (c *Coordinator) Upsert(ctx context.Context, p auth.Principal, req Request) (string, error) {
	op := "update"
	if req.ResourceID == "" {
		op = "insert"
	}

	var id string
	err := c.run(ctx, op, p, req, func(ctx context.Context) error {
		var err error
		if op == "insert" {
			id, err = c.insert(ctx, p, req)
		} else {
			id, err = c.update(ctx, p, req)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes an existing resource under the same ownership rules as an
// update.
func (c *Coordinator) Delete(ctx context.Context, p auth.Principal, req Request) error {
	return c.run(ctx, "delete", p, req, func(ctx context.Context) error {
		return c.delete(ctx, p, req)
	})
}

func (c *Coordinator) run(ctx context.Context, op string, p auth.Principal, req Request, fn func(context.Context) error) error {
	if req.Schema == nil {
		return &Error{Kind: KindInvalid, Op: op, ResourceID: req.ResourceID, Err: ErrNilSchema}
	}
	meta := observe.OpMeta{Component: "mutation", Name: op, Table: req.Schema.Table}
	err := c.mw.Run(ctx, meta, fn)
	if err != nil {
		c.logFailure(ctx, p, err)
	}
	return err
}

func (c *Coordinator) insert(ctx context.Context, p auth.Principal, req Request) (string, error) {
	s := req.Schema
	fail := func(kind Kind, err error) (string, error) {
		return "", &Error{Kind: kind, Op: "insert", Table: s.Table, Err: err}
	}

	if !auth.CanMutate(p, nil) {
		return fail(KindUnauthenticated, nil)
	}

	row, ownerSupplied, err := s.Sanitize(req.Payload, true)
	if err != nil {
		return fail(KindInvalid, err)
	}
	if ownerSupplied {
		c.logger.Info(ctx, "caller-supplied owner ignored",
			observe.F("table", s.Table),
			observe.F("principal", p.ID),
		)
	}
	for col, v := range req.Assign {
		if col != IDColumn && col != s.Owner() {
			row[col] = v
		}
	}
	row[s.Owner()] = p.ID

	id, err := c.store.Insert(ctx, s.Table, row)
	if err != nil {
		return fail(storeKind(err), err)
	}

	c.publish(ctx, s.tagsFor(id, req.Tags))
	return id, nil
}

func (c *Coordinator) update(ctx context.Context, p auth.Principal, req Request) (string, error) {
	s, id := req.Schema, req.ResourceID
	fail := func(kind Kind, err error) (string, error) {
		return "", &Error{Kind: kind, Op: "update", Table: s.Table, ResourceID: id, Err: err}
	}

	if p.IsAnonymous() {
		return fail(KindUnauthenticated, nil)
	}

	patch, _, err := s.Sanitize(req.Payload, false)
	if err != nil {
		return fail(KindInvalid, err)
	}

	scope, kind, err := c.authorize(ctx, p, s, id, req.Scope)
	if err != nil {
		return fail(kind, err)
	}

	n, err := c.store.Update(ctx, s.Table, id, patch, scope)
	if err != nil {
		return fail(storeKind(err), err)
	}
	if n == 0 {
		// Deleted or re-owned between the ownership check and the write.
		return fail(KindNotFound, nil)
	}

	c.publish(ctx, s.tagsFor(id, req.Tags))
	return id, nil
}

func (c *Coordinator) delete(ctx context.Context, p auth.Principal, req Request) error {
	s, id := req.Schema, req.ResourceID
	fail := func(kind Kind, err error) error {
		return &Error{Kind: kind, Op: "delete", Table: s.Table, ResourceID: id, Err: err}
	}

	if p.IsAnonymous() {
		return fail(KindUnauthenticated, nil)
	}
	if id == "" {
		return fail(KindInvalid, errors.New("resource id is required"))
	}

	scope, kind, err := c.authorize(ctx, p, s, id, req.Scope)
	if err != nil {
		return fail(kind, err)
	}

	n, err := c.store.Delete(ctx, s.Table, append(store.Eq(IDColumn, id), scope...))
	if err != nil {
		return fail(storeKind(err), err)
	}
	if n == 0 {
		return fail(KindNotFound, nil)
	}

	c.publish(ctx, s.tagsFor(id, req.Tags))
	return nil
}

var (
	errDenied  = errors.New("principal neither owns the resource nor is admin")
	errMissing = errors.New("resource does not exist")
)

// authorize loads the current owner of id within extra and returns the
// scope filter the write must carry: extra plus the owner match for regular
// principals, extra alone for admins.
func (c *Coordinator) authorize(ctx context.Context, p auth.Principal, s *Schema, id string, extra store.Filter) (store.Filter, Kind, error) {
	owner := s.Owner()
	row, err := store.First(ctx, c.store, store.Query{
		Table:   s.Table,
		Columns: []string{IDColumn, owner},
		Where:   append(store.Eq(IDColumn, id), extra...),
	})
	switch {
	case errors.Is(err, store.ErrNoRows):
		return nil, KindNotFound, errMissing
	case err != nil:
		return nil, KindStoreError, err
	}

	existing := row.String(owner)
	if !auth.CanMutate(p, &existing) {
		return nil, KindForbidden, errDenied
	}
	scope := slices.Clone(extra)
	if auth.IsAdmin(p) {
		return scope, 0, nil
	}
	return append(scope, store.Eq(owner, p.ID)...), 0, nil
}

func (c *Coordinator) publish(ctx context.Context, tags []string) {
	if c.publisher == nil || len(tags) == 0 {
		return
	}
	c.publisher.PublishAll(ctx, tags...)
}

func (c *Coordinator) logFailure(ctx context.Context, p auth.Principal, err error) {
	var e *Error
	if !errors.As(err, &e) {
		return
	}
	fields := []observe.Field{
		observe.F("op", e.Op),
		observe.F("table", e.Table),
		observe.F("resource_id", e.ResourceID),
		observe.F("kind", e.Kind.String()),
		observe.F("principal", p.ID),
	}
	if e.Kind == KindStoreError {
		c.logger.Error(ctx, "mutation store failure", append(fields,
			observe.Err(e.Err),
			observe.F("detail", store.Detail(e.Err)),
		)...)
		return
	}
	c.logger.Info(ctx, "mutation rejected", fields...)
}

func storeKind(err error) Kind {
	switch {
	case errors.Is(err, store.ErrConflict):
		return KindConflict
	case errors.Is(err, store.ErrMissingReference), errors.Is(err, store.ErrNoRows):
		return KindNotFound
	}
	return KindStoreError
}
