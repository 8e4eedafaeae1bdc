// Package service holds the e-mail confirmation-code flow and the mail
// transports it delivers codes through.
package service

import (
    "context"
    "errors"
    "sync"
    "time"

    "golang.org/x/time/rate"

    "github.com/iliyamo/media-catalog/internal/logging"
    "github.com/iliyamo/media-catalog/internal/metrics"
    "github.com/iliyamo/media-catalog/internal/model"
    q "github.com/iliyamo/media-catalog/internal/queue"
    "github.com/iliyamo/media-catalog/internal/repository"
    "github.com/iliyamo/media-catalog/internal/utils"
    "github.com/iliyamo/media-catalog/internal/validation"
)

var (
    // ErrInvalidCode covers every failed exchange: unknown email, wrong,
    // expired or already used code.  Callers must not tell them apart.
    ErrInvalidCode = errors.New("wrong or already used confirmation_code")
    // ErrThrottled means the email asked for codes too often.
    ErrThrottled = errors.New("too many confirmation codes requested")
)

// RetryMessage is the response body text for ErrInvalidCode.
const RetryMessage = " wrong or already used confirmation_code, check your mail for a new confirmation_code"

// UserStore is the part of the user repository the flow needs.
type UserStore interface {
    EmailTaken(ctx context.Context, email string, exceptID uint64) (bool, error)
    UsernameTaken(ctx context.Context, username string, exceptID uint64) (bool, error)
    CreateWithCode(ctx context.Context, u *model.User, codeHash string, expiresAt time.Time) error
    GetByEmail(ctx context.Context, email string) (model.User, error)
}

// CodeStore is the confirmation code repository.
type CodeStore interface {
    Replace(ctx context.Context, userID uint64, codeHash string, expiresAt time.Time) error
    GetByUser(ctx context.Context, userID uint64) (model.ConfirmationCode, error)
    Consume(ctx context.Context, id uint64, grant *repository.RefreshGrant) error
}

// ConfirmationOptions tunes code lifetime, hashing and throttling.
type ConfirmationOptions struct {
    CodeTTL       time.Duration
    BcryptCost    int
    IssueInterval time.Duration // one code per interval per email
    IssueBurst    int
}

// Confirmation registers users by e-mail and exchanges codes for a user.
type Confirmation struct {
    users   UserStore
    codes   CodeStore
    sender  CodeSender
    opts    ConfirmationOptions
    limiter *emailLimiter
    now     func() time.Time
}

func NewConfirmation(users UserStore, codes CodeStore, sender CodeSender, opts ConfirmationOptions) *Confirmation {
    if opts.CodeTTL <= 0 {
        opts.CodeTTL = 30 * time.Minute
    }
    if opts.BcryptCost == 0 {
        opts.BcryptCost = 10
    }
    return &Confirmation{
        users:   users,
        codes:   codes,
        sender:  sender,
        opts:    opts,
        limiter: newEmailLimiter(opts.IssueInterval, opts.IssueBurst),
        now:     time.Now,
    }
}

// Register creates a user whose username and email are both email, stores
// a fresh code and sends it.  A taken email or username yields a
// *validation.Errors on "email".  Delivery failures are logged only.
func (s *Confirmation) Register(ctx context.Context, email string) error {
    email = repository.NormalizeEmail(email)

    taken, err := s.users.EmailTaken(ctx, email, 0)
    if err != nil {
        return err
    }
    if !taken {
        if taken, err = s.users.UsernameTaken(ctx, email, 0); err != nil {
            return err
        }
    }
    if taken {
        return validation.Field("email", "user with this email already exists.")
    }
    if !s.limiter.allow(email) {
        return ErrThrottled
    }

    code, hash, err := s.newCode()
    if err != nil {
        return err
    }
    u := model.User{Username: email, Email: email, Role: model.RoleUser, IsActive: true}
    if err := s.users.CreateWithCode(ctx, &u, hash, s.now().Add(s.opts.CodeTTL)); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return validation.Field("email", "user with this email already exists.")
        }
        return err
    }
    metrics.ConfirmationCodesIssued.WithLabelValues("register").Inc()
    s.deliver(ctx, email, q.SubjectRegistration, code)
    return nil
}

// Exchange checks code for email.  On success the code is consumed and the
// user returned.  A non-nil grant is stored for the user in the same
// transaction, so a failed store leaves the code usable.  On any failure
// for a known, active user a new code replaces the old one and is sent;
// ErrInvalidCode is returned either way.
func (s *Confirmation) Exchange(ctx context.Context, email, code string, grant *repository.RefreshGrant) (model.User, error) {
    email = repository.NormalizeEmail(email)
    u, err := s.users.GetByEmail(ctx, email)
    if errors.Is(err, repository.ErrNotFound) {
        metrics.TokenExchanges.WithLabelValues("rejected").Inc()
        return model.User{}, ErrInvalidCode
    }
    if err != nil {
        return model.User{}, err
    }
    if !u.IsActive {
        metrics.TokenExchanges.WithLabelValues("rejected").Inc()
        return model.User{}, ErrInvalidCode
    }

    stored, err := s.codes.GetByUser(ctx, u.ID)
    switch {
    case err == nil:
        if !stored.Expired(s.now()) && utils.VerifyCode(stored.CodeHash, code) {
            if grant != nil {
                g := *grant
                g.UserID = u.ID
                grant = &g
            }
            err := s.codes.Consume(ctx, stored.ID, grant)
            if err == nil {
                metrics.TokenExchanges.WithLabelValues("ok").Inc()
                return u, nil
            }
            if !errors.Is(err, repository.ErrConflict) {
                return model.User{}, err
            }
            // lost the race against a concurrent exchange
        }
    case !errors.Is(err, repository.ErrNotFound):
        return model.User{}, err
    }

    if !s.limiter.allow(email) {
        metrics.TokenExchanges.WithLabelValues("throttled").Inc()
        return model.User{}, ErrThrottled
    }
    fresh, hash, err := s.newCode()
    if err != nil {
        return model.User{}, err
    }
    if err := s.codes.Replace(ctx, u.ID, hash, s.now().Add(s.opts.CodeTTL)); err != nil {
        return model.User{}, err
    }
    metrics.ConfirmationCodesIssued.WithLabelValues("retry").Inc()
    metrics.TokenExchanges.WithLabelValues("rejected").Inc()
    s.deliver(ctx, email, q.SubjectNewCode, fresh)
    return model.User{}, ErrInvalidCode
}

func (s *Confirmation) newCode() (string, string, error) {
    code, err := utils.NewConfirmationCode()
    if err != nil {
        return "", "", err
    }
    hash, err := utils.HashCode(code, s.opts.BcryptCost)
    if err != nil {
        return "", "", err
    }
    return code, hash, nil
}

func (s *Confirmation) deliver(ctx context.Context, to, subject, code string) {
    if s.sender == nil {
        return
    }
    if err := s.sender.SendCode(ctx, to, subject, code); err != nil {
        logging.Ctx(ctx).Error().Err(err).Str("to", to).Msg("confirmation code delivery failed")
    }
}

// emailLimiter keeps one token bucket per address.  Idle buckets are
// dropped once the map grows past maxLimiters.
type emailLimiter struct {
    mu       sync.Mutex
    every    rate.Limit
    burst    int
    limiters map[string]*limiterEntry
}

type limiterEntry struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

const maxLimiters = 10000

func newEmailLimiter(interval time.Duration, burst int) *emailLimiter {
    if burst < 1 {
        burst = 1
    }
    every := rate.Inf
    if interval > 0 {
        every = rate.Every(interval)
    }
    return &emailLimiter{every: every, burst: burst, limiters: map[string]*limiterEntry{}}
}

func (l *emailLimiter) allow(email string) bool {
    l.mu.Lock()
    defer l.mu.Unlock()

    now := time.Now()
    e, ok := l.limiters[email]
    if !ok {
        if len(l.limiters) >= maxLimiters {
            l.prune(now)
        }
        e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
        l.limiters[email] = e
    }
    e.lastSeen = now
    return e.lim.AllowN(now, 1)
}

// prune drops buckets that have been idle long enough to be full again.
func (l *emailLimiter) prune(now time.Time) {
    idle := time.Hour
    if l.every != rate.Inf && l.every > 0 {
        idle = time.Duration(float64(l.burst) / float64(l.every) * float64(time.Second))
    }
    for k, e := range l.limiters {
        if now.Sub(e.lastSeen) > idle {
            delete(l.limiters, k)
        }
    }
}
