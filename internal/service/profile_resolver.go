package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

// ProfileResolverConfig tunes the provisioning wait.
type ProfileResolverConfig struct {
	Retry       RetryPolicy
	Sleeper     Sleeper       // defaults to RealSleeper
	CallTimeout time.Duration // per store call; default 10s
}

// ProfileResolverOptions groups dependencies for ProfileResolver.
type ProfileResolverOptions struct {
	Profiles ports.ProfileStore // Required
	Config   ProfileResolverConfig
	Logger   *slog.Logger // Optional
}

// ProfileResolver maps an authenticated session to its profile, provisioning the
// profile exactly once when it does not exist yet.
type ProfileResolver struct {
	profiles    ports.ProfileStore
	retry       RetryPolicy
	sleeper     Sleeper
	callTimeout time.Duration
	logger      *slog.Logger
	group       singleflight.Group
}

// NewProfileResolver constructs a ProfileResolver.
func NewProfileResolver(opts ProfileResolverOptions) *ProfileResolver {
	if opts.Profiles == nil {
		panic("ProfileStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleeper := opts.Config.Sleeper
	if sleeper == nil {
		sleeper = RealSleeper
	}
	retry := opts.Config.Retry
	if retry.Attempts < 0 {
		retry.Attempts = 0
	}
	callTimeout := opts.Config.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &ProfileResolver{
		profiles:    opts.Profiles,
		retry:       retry,
		sleeper:     sleeper,
		callTimeout: callTimeout,
		logger:      logger.With("component", "profile_resolver"),
	}
}

// Resolve returns the profile for s. Store failures never surface: policy recursion and
// provisioning failures degrade to the synthetic vendor baseline. The only errors are
// validation (no user id) and cancellation/timeout of ctx.
//
// Concurrent calls for the same identity share one resolution.
func (r *ProfileResolver) Resolve(ctx context.Context, s domainauth.Session) (*domainauth.Profile, error) {
	if s.UserID == "" {
		return nil, apperrors.ValidationField("user_id", "Session has no user id.")
	}

	ch := r.group.DoChan(s.UserID, func() (any, error) {
		return r.resolve(ctx, s)
	})
	select {
	case <-ctx.Done():
		return nil, ctxError(ctx)
	case res := <-ch:
		if res.Err != nil {
			// The shared call ran under another caller's context; if that caller went away
			// but this one did not, resolve again on our own.
			if isCtxCode(res.Err) && ctx.Err() == nil {
				p, err := r.resolve(ctx, s)
				return cloneProfile(p), err
			}
			return nil, res.Err
		}
		return cloneProfile(res.Val.(*domainauth.Profile)), nil
	}
}

func (r *ProfileResolver) resolve(ctx context.Context, s domainauth.Session) (*domainauth.Profile, error) {
	log := r.logger.With("user_id", s.UserID)

	p, done, err := r.read(ctx, s, log)
	if done {
		return p, err
	}

	for attempt := 1; attempt <= r.retry.Attempts; attempt++ {
		if err := r.sleeper.Sleep(ctx, r.retry.DelayFor(attempt)); err != nil {
			return nil, ctxError(ctx)
		}
		p, done, err = r.read(ctx, s, log)
		if done {
			return p, err
		}
	}

	if ctx.Err() != nil {
		return nil, ctxError(ctx)
	}
	return r.provision(ctx, s, log)
}

// read fetches the profile. done is false only when the row does not exist.
func (r *ProfileResolver) read(
	ctx context.Context,
	s domainauth.Session,
	log *slog.Logger,
) (*domainauth.Profile, bool, error) {
	p, err := r.getByID(ctx, s.UserID)
	switch {
	case err == nil:
		return p, true, nil
	case ctx.Err() != nil:
		return nil, true, ctxError(ctx)
	case apperrors.IsNotFound(err):
		return nil, false, nil
	case apperrors.IsPolicyRecursion(err):
		log.WarnContext(ctx, "profile read hit policy recursion; using baseline role", "error", err)
		return domainauth.BaselineProfile(s), true, nil
	default:
		log.ErrorContext(ctx, "profile read failed; using baseline role", "error", err)
		return domainauth.BaselineProfile(s), true, nil
	}
}

func (r *ProfileResolver) provision(
	ctx context.Context,
	s domainauth.Session,
	log *slog.Logger,
) (*domainauth.Profile, error) {
	p, err := r.insert(ctx, domainauth.DefaultProfileFor(s))
	if err == nil {
		log.InfoContext(ctx, "profile provisioned", "role", p.Role)
		return p, nil
	}
	if ctx.Err() != nil {
		return nil, ctxError(ctx)
	}
	if apperrors.IsConflict(err) {
		// A concurrent provisioner won the race; its row is the answer.
		existing, rerr := r.getByID(ctx, s.UserID)
		switch {
		case rerr == nil:
			return existing, nil
		case ctx.Err() != nil:
			return nil, ctxError(ctx)
		}
		log.ErrorContext(ctx, "re-read after insert conflict failed; using baseline role", "error", rerr)
		return domainauth.BaselineProfile(s), nil
	}
	log.ErrorContext(ctx, "profile provisioning failed; using baseline role",
		"error", apperrors.Wrap(err, apperrors.ErrCodeProvisioning, "insert default profile"))
	return domainauth.BaselineProfile(s), nil
}

// getByID and insert bound each store call by callTimeout. When only that deadline
// expires, the store error reaches the degraded paths above while ctx stays live.
func (r *ProfileResolver) getByID(ctx context.Context, id string) (*domainauth.Profile, error) {
	cctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.profiles.GetByID(cctx, id)
}

func (r *ProfileResolver) insert(ctx context.Context, in domainauth.NewProfile) (*domainauth.Profile, error) {
	cctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.profiles.Insert(cctx, in)
}

// ctxError converts ctx's error to a timeout or canceled AppError.
func ctxError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperrors.MapDBError(err)
	}
	return apperrors.New(apperrors.ErrCodeCanceled, "Request was canceled.")
}

func isCtxCode(err error) bool {
	return apperrors.IsCanceled(err) || apperrors.IsTimeout(err)
}

func cloneProfile(p *domainauth.Profile) *domainauth.Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
