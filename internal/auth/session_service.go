package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"gorm.io/gorm"

	"resumeMatcher/internal/database"
	"resumeMatcher/internal/errcode"
	"resumeMatcher/internal/metrics"
)

// 自动开户时用户名的最大长度（与 users.username 列宽一致）以及提交重试次数。
const (
	maxUsernameLength    = 64
	maxProvisionAttempts = 10
)

const invalidCredentialsMessage = "invalid email or password"

// UserStore 是账号存储需要提供的能力。未找到时返回 gorm.ErrRecordNotFound，
// 违反唯一约束时返回 gorm.ErrDuplicatedKey。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*database.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *database.User) error
}

// TokenIssuer 为已验证身份签发令牌。
type TokenIssuer interface {
	IssueToken(user *database.User) (string, error)
}

// Session 是签发成功后返回给调用方的内容。
type Session struct {
	Token     string        `json:"token"`
	Email     string        `json:"email"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Role      database.Role `json:"role"`
}

// RegisterInput 是注册所需字段。
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      database.Role
}

// ResumeLoginInput 是免密登录所需字段，姓名仅在首次开户时使用。
type ResumeLoginInput struct {
	Email     string
	FirstName *string
	LastName  *string
}

// SessionService 编排注册、密码登录与基于简历的免密登录。
type SessionService struct {
	users  UserStore
	tokens TokenIssuer
	logger *slog.Logger
}

// NewSessionService 构造 SessionService。
func NewSessionService(users UserStore, tokens TokenIssuer, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{users: users, tokens: tokens, logger: logger}
}

// NormalizeEmail 去除首尾空白并转为小写，所有查找与写入都使用该形式。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 创建新账号并签发令牌。邮箱或用户名已存在时返回 Conflict。
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if !in.Role.Valid() {
		return nil, errcode.Validation("validation failed", map[string]string{
			"role": "must be one of JOB_SEEKER, RECRUITER",
		})
	}

	logger := s.logger.With(slog.String("username", username))

	if exists, err := s.users.ExistsByEmail(ctx, email); err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("check email: %w", err))
	} else if exists {
		logger.Info("register conflict: email already exists")
		return nil, errcode.Conflict("email already exists")
	}
	if exists, err := s.users.ExistsByUsername(ctx, username); err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("check username: %w", err))
	} else if exists {
		logger.Info("register conflict: username already exists")
		return nil, errcode.Conflict("username already exists")
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, errcode.Unexpected(err)
	}

	user := &database.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 预检查之后被并发注册抢先写入。
			if taken, lookupErr := s.users.ExistsByEmail(ctx, email); lookupErr == nil && taken {
				return nil, errcode.Conflict("email already exists")
			}
			return nil, errcode.Conflict("username already exists")
		}
		return nil, errcode.Unexpected(fmt.Errorf("create user: %w", err))
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)), slog.String("role", string(user.Role)))
	return s.issue(user, "register")
}

// Login 校验邮箱与密码。邮箱不存在与密码错误返回同一个 Unauthorized。
func (s *SessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 不存在的账号同样执行一次哈希比较。
			CheckPasswordHash(password, dummyPasswordHash())
			s.logger.Info("login failed: user not found")
			metrics.ObserveLoginFailure()
			return nil, errcode.Unauthorized(invalidCredentialsMessage)
		}
		return nil, errcode.Unexpected(fmt.Errorf("find user: %w", err))
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		s.logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		metrics.ObserveLoginFailure()
		return nil, errcode.Unauthorized(invalidCredentialsMessage)
	}

	return s.issue(user, "login")
}

// ResumeLogin 按邮箱免密登录；账号不存在时以 JOB_SEEKER 身份自动开户。
// 同一邮箱的重复调用总是落到同一个账号上。
func (s *SessionService) ResumeLogin(ctx context.Context, in ResumeLoginInput) (*Session, error) {
	email := NormalizeEmail(in.Email)
	base, err := usernameBase(email)
	if err != nil {
		return nil, err
	}

	var hashed string
	suffix := 0
	for attempt := 0; attempt < maxProvisionAttempts; attempt++ {
		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			return s.issue(existing, "resume_login")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Unexpected(fmt.Errorf("find user: %w", err))
		}

		if hashed == "" {
			if hashed, err = randomPasswordHash(); err != nil {
				return nil, errcode.Unexpected(err)
			}
		}

		username, used, err := s.nextFreeUsername(ctx, base, suffix)
		if err != nil {
			return nil, errcode.Unexpected(err)
		}

		user := &database.User{
			Username:     username,
			Email:        email,
			PasswordHash: hashed,
			FirstName:    derefOrEmpty(in.FirstName),
			LastName:     derefOrEmpty(in.LastName),
			Role:         database.RoleJobSeeker,
		}
		err = s.users.Create(ctx, user)
		if err == nil {
			s.logger.Info("user provisioned by resume login",
				slog.Uint64("user_id", uint64(user.ID)),
				slog.String("username", username),
			)
			metrics.ObserveProvisioned()
			return s.issue(user, "resume_login")
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errcode.Unexpected(fmt.Errorf("create user: %w", err))
		}

		// 邮箱冲突会在下一轮按邮箱读到对方创建的账号；用户名冲突则从下一个后缀继续探测。
		s.logger.Info("resume login provisioning collided, retrying",
			slog.String("username", username),
			slog.Int("attempt", attempt+1),
		)
		suffix = used + 1
	}

	return nil, errcode.Unexpected(errors.New("resume login provisioning retries exhausted"))
}

// CurrentUser 返回令牌所属账号。
func (s *SessionService) CurrentUser(ctx context.Context, email string) (*database.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("user not found")
		}
		return nil, errcode.Unexpected(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}

// nextFreeUsername 从 start 开始依次探测 base、base1、base2……返回第一个未占用的用户名及其后缀。
// 探测只是优化，最终以写入时的唯一约束为准。
func (s *SessionService) nextFreeUsername(ctx context.Context, base string, start int) (string, int, error) {
	for i := start; ; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		candidate := usernameCandidate(base, i)
		taken, err := s.users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", 0, fmt.Errorf("check username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, i, nil
		}
	}
}

func (s *SessionService) issue(user *database.User, method string) (*Session, error) {
	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("issue token: %w", err))
	}
	metrics.ObserveSessionIssued(method)
	return &Session{
		Token:     token,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}, nil
}

// usernameBase 取邮箱 @ 之前的部分作为候选用户名。
func usernameBase(email string) (string, error) {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "", errcode.Validation("validation failed", map[string]string{
			"email": "must be a valid email address",
		})
	}
	base := email[:at]
	if n := maxUsernameLength - 8; len(base) > n {
		// 按字符边界截断，保证结果仍是合法 UTF-8。
		for n > 0 && !utf8.RuneStart(base[n]) {
			n--
		}
		base = base[:n]
	}
	return base, nil
}

func usernameCandidate(base string, suffix int) string {
	if suffix == 0 {
		return base
	}
	return base + strconv.Itoa(suffix)
}

// randomPasswordHash 为免密开户的账号生成随机口令的哈希，口令本身不保留。
func randomPasswordHash() (string, error) {
	password, err := GenerateRandomPassword(32)
	if err != nil {
		return "", err
	}
	return HashPassword(password)
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("resume-matcher-timing-equalizer")
	})
	return dummyHash
}
