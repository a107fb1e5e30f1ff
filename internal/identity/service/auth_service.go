package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/audit"
	"prepmaster/backend/internal/devotp"
	"prepmaster/backend/internal/email"
	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/identity/repository"
	"prepmaster/backend/internal/observability"
	"prepmaster/backend/internal/otp"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/platform/rbac"
	"prepmaster/backend/internal/security"
)

// Caller-facing messages. Unknown email and wrong password share one message.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailNotVerified   = "Please verify your email first"
	msgAccountLocked      = "Account is temporarily locked due to too many failed login attempts. Please try again later"
	msgDeactivated        = "Your account has been deactivated"
	msgInvalidOTP         = "Invalid or expired OTP"
	msgInvalidLink        = "Invalid or expired verification token"
	msgEmailTaken         = "Email already registered"
	msgSuperAdminExists   = "Super Admin already exists"
	msgIdentifierTaken    = "Student or staff ID already registered"
)

const auditResource = "auth"

// AuthResult holds the outcome of a login: the identity without secrets and a session token.
type AuthResult struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}

// RegisterInput is the caller-supplied part of a registration. Role is never
// taken from the caller; each Register method assigns it.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	StudentID  string
	StaffID    string
	Department string
	YearLevel  int
}

// ProfileUpdate holds the self-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name       *string
	Department *string
	YearLevel  *int
}

// Deps are the collaborators of AuthService. Repo, Hasher and Tokens are required.
type Deps struct {
	Repo    repository.Repository
	Hasher  *security.Hasher
	Tokens  *security.TokenCodec
	OTP     otp.Generator
	Mailer  email.Sender
	DevOTP  devotp.Store
	Audit   audit.AuditLogger
	Metrics *observability.Metrics
	Log     logrus.FieldLogger
	Now     func() time.Time

	Lockout         domain.LockoutPolicy
	OTPTTL          time.Duration
	VerificationTTL time.Duration
	// BaseURL prefixes verification links, e.g. https://prep.example.com.
	BaseURL string
}

// AuthService implements registration, OTP and link verification, login with lockout, and password changes.
type AuthService struct {
	repo    repository.Repository
	hasher  *security.Hasher
	tokens  *security.TokenCodec
	otps    otp.Generator
	mailer  email.Sender
	devOTP  devotp.Store
	audit   audit.AuditLogger
	metrics *observability.Metrics
	log     logrus.FieldLogger
	now     func() time.Time

	lockout         domain.LockoutPolicy
	otpTTL          time.Duration
	verificationTTL time.Duration
	baseURL         string
}

// NewAuthService returns an AuthService with the given dependencies. Optional
// collaborators default to no-ops, the generator to otp.RandomGenerator and
// the clock to time.Now.
func NewAuthService(d Deps) *AuthService {
	s := &AuthService{
		repo:            d.Repo,
		hasher:          d.Hasher,
		tokens:          d.Tokens,
		otps:            d.OTP,
		mailer:          d.Mailer,
		devOTP:          d.DevOTP,
		audit:           d.Audit,
		metrics:         d.Metrics,
		log:             d.Log,
		now:             d.Now,
		lockout:         d.Lockout,
		otpTTL:          d.OTPTTL,
		verificationTTL: d.VerificationTTL,
		baseURL:         strings.TrimRight(d.BaseURL, "/"),
	}
	if s.otps == nil {
		s.otps = otp.RandomGenerator{}
	}
	if s.mailer == nil {
		s.mailer = email.LogSender{Log: d.Log}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.otpTTL <= 0 {
		s.otpTTL = domain.DefaultOTPTTL
	}
	if s.verificationTTL <= 0 {
		s.verificationTTL = domain.DefaultEmailVerificationTTL
	}
	return s
}

// RegisterStudent creates an unverified student and emails a registration OTP.
func (s *AuthService) RegisterStudent(ctx context.Context, in RegisterInput) (*domain.Identity, error) {
	return s.register(ctx, rbac.RoleStudent, in, false)
}

// RegisterAdmin is admin self-registration: an unverified admin with an OTP
// that must be confirmed through VerifyAdminOTP.
func (s *AuthService) RegisterAdmin(ctx context.Context, in RegisterInput) (*domain.Identity, error) {
	return s.register(ctx, rbac.RoleAdmin, in, false)
}

// RegisterPrivileged lets the super admin create staff and admin accounts. The
// new identity is unverified and receives a verification link.
func (s *AuthService) RegisterPrivileged(ctx context.Context, actor *domain.Identity, role rbac.Role, in RegisterInput) (*domain.Identity, error) {
	if actor == nil || actor.Role != rbac.RoleSuperAdmin {
		return nil, apperr.Forbidden("Only super admin can create staff and admin accounts")
	}
	switch role {
	case rbac.RoleStaff, rbac.RoleAdmin, rbac.RoleSuperAdmin:
	default:
		return nil, apperr.Validation("role must be staff or admin")
	}
	return s.register(ctx, role, in, true)
}

// CreateSuperAdmin creates the single, already verified super admin. Used by the seed command.
func (s *AuthService) CreateSuperAdmin(ctx context.Context, in RegisterInput) (*domain.Identity, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if err := s.ensureNoSuperAdmin(ctx); err != nil {
		return nil, err
	}
	ident, err := s.newIdentity(rbac.RoleSuperAdmin, in)
	if err != nil {
		return nil, err
	}
	ident.EmailVerified = true
	if err := s.create(ctx, ident); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, ident.ID, audit.ActionRegister, "identity", string(rbac.RoleSuperAdmin))
	out := ident.Public()
	return &out, nil
}

func (s *AuthService) register(ctx context.Context, role rbac.Role, in RegisterInput, byLink bool) (*domain.Identity, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateRegistration(role, in); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict(msgEmailTaken)
	}
	if role == rbac.RoleSuperAdmin {
		if err := s.ensureNoSuperAdmin(ctx); err != nil {
			return nil, err
		}
	}
	ident, err := s.newIdentity(role, in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		code    string
		rawLink string
	)
	if byLink {
		raw, hash, err := security.NewVerificationToken()
		if err != nil {
			return nil, err
		}
		rawLink = raw
		*ident, _ = domain.IssueEmailVerification(*ident, hash, s.verificationTTL, now)
	} else {
		code, err = s.otps.Generate()
		if err != nil {
			return nil, err
		}
		*ident, _ = domain.IssueOTP(*ident, otp.Hash(code), s.otpTTL, now)
	}

	if err := s.create(ctx, ident); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, ident.ID, audit.ActionRegister, "identity", string(role))

	if byLink {
		s.sendVerificationLink(ctx, *ident, rawLink, now)
	} else {
		s.deliverOTP(ctx, *ident, code, now)
	}
	out := ident.Public()
	return &out, nil
}

func (s *AuthService) newIdentity(role rbac.Role, in RegisterInput) (*domain.Identity, error) {
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ident := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		StudentID:    strings.TrimSpace(in.StudentID),
		StaffID:      strings.TrimSpace(in.StaffID),
		Department:   strings.TrimSpace(in.Department),
		YearLevel:    in.YearLevel,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ident.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return ident, nil
}

func (s *AuthService) create(ctx context.Context, ident *domain.Identity) error {
	err := s.repo.Create(ctx, ident)
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return apperr.Conflict(msgEmailTaken)
	case errors.Is(err, repository.ErrSuperAdminExists):
		return apperr.Conflict(msgSuperAdminExists)
	case errors.Is(err, repository.ErrIdentifierTaken):
		return apperr.Conflict(msgIdentifierTaken)
	}
	return err
}

func (s *AuthService) ensureNoSuperAdmin(ctx context.Context) error {
	exists, err := s.repo.ExistsWithRole(ctx, rbac.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Conflict(msgSuperAdminExists)
	}
	return nil
}

// VerifyOTP confirms a registration OTP and marks the email verified.
func (s *AuthService) VerifyOTP(ctx context.Context, emailAddr, code string) (*domain.Identity, error) {
	ident, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		s.metrics.OTPVerification(observability.OutcomeInvalidOrExpired)
		return nil, apperr.New(apperr.ErrInvalidOrExpiredOTP, msgInvalidOTP)
	}
	next, err := s.consumeOTP(ctx, *ident, code)
	if err != nil {
		return nil, err
	}
	out := next.Public()
	return &out, nil
}

// VerifyAdminOTP is VerifyOTP restricted to admins; on success it also signs the admin in.
// Non-admin identities get the same error as a wrong code.
func (s *AuthService) VerifyAdminOTP(ctx context.Context, emailAddr, code string) (*AuthResult, error) {
	ident, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.Role != rbac.RoleAdmin {
		s.metrics.OTPVerification(observability.OutcomeInvalidOrExpired)
		return nil, apperr.New(apperr.ErrInvalidOrExpiredOTP, msgInvalidOTP)
	}
	next, err := s.consumeOTP(ctx, *ident, code)
	if err != nil {
		return nil, err
	}
	if !next.Active {
		return nil, apperr.Forbidden(msgDeactivated)
	}
	return s.completeLogin(ctx, next, s.now().UTC())
}

func (s *AuthService) consumeOTP(ctx context.Context, ident domain.Identity, code string) (domain.Identity, error) {
	next, muts, ok := domain.VerifyOTP(ident, strings.TrimSpace(code), s.now().UTC())
	if !ok {
		s.metrics.OTPVerification(observability.OutcomeInvalidOrExpired)
		return domain.Identity{}, apperr.New(apperr.ErrInvalidOrExpiredOTP, msgInvalidOTP)
	}
	if err := s.repo.Update(ctx, ident.ID, muts...); err != nil {
		return domain.Identity{}, err
	}
	s.metrics.OTPVerification(observability.OutcomeSuccess)
	s.audit.LogEvent(ctx, ident.ID, audit.ActionOTPVerified, auditResource, "")
	return next, nil
}

// ResendOTP replaces the OTP of an unverified identity. Unknown and already
// verified emails succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) ResendOTP(ctx context.Context, emailAddr string) error {
	ident, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if ident == nil || ident.EmailVerified {
		return nil
	}
	now := s.now().UTC()
	code, err := s.otps.Generate()
	if err != nil {
		return err
	}
	_, muts := domain.IssueOTP(*ident, otp.Hash(code), s.otpTTL, now)
	if err := s.repo.Update(ctx, ident.ID, muts...); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, ident.ID, audit.ActionOTPResent, auditResource, "")
	s.deliverOTP(ctx, *ident, code, now)
	return nil
}

// VerifyEmail consumes a verification link token.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (*domain.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, apperr.New(apperr.ErrInvalidOrExpiredToken, msgInvalidLink)
	}
	ident, err := s.repo.GetByVerificationHash(ctx, security.HashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, apperr.New(apperr.ErrInvalidOrExpiredToken, msgInvalidLink)
	}
	next, muts, ok := domain.VerifyEmailLink(*ident, rawToken, s.now().UTC())
	if !ok {
		return nil, apperr.New(apperr.ErrInvalidOrExpiredToken, msgInvalidLink)
	}
	if err := s.repo.Update(ctx, ident.ID, muts...); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, ident.ID, audit.ActionEmailVerified, auditResource, "")
	out := next.Public()
	return &out, nil
}

// Login authenticates with email and password. The lock window is checked
// before the password; failures feed the lockout policy.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	ident, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if ident == nil {
		s.hasher.Burn(password)
		s.metrics.Login(observability.OutcomeInvalid)
		s.audit.LogEvent(ctx, "", audit.ActionLoginFailure, auditResource, "")
		return nil, apperr.New(apperr.ErrInvalidCredentials, msgInvalidCredentials)
	}
	if s.lockout.IsLocked(*ident, now) {
		s.metrics.Login(observability.OutcomeLocked)
		s.audit.LogEvent(ctx, ident.ID, audit.ActionLoginFailure, auditResource, "locked")
		return nil, apperr.New(apperr.ErrAccountLocked, msgAccountLocked)
	}
	if !s.hasher.Matches(ident.PasswordHash, password) {
		_, muts, locked := s.lockout.RegisterFailure(*ident, now)
		if err := s.repo.Update(ctx, ident.ID, muts...); err != nil {
			return nil, err
		}
		s.metrics.Login(observability.OutcomeInvalid)
		s.audit.LogEvent(ctx, ident.ID, audit.ActionLoginFailure, auditResource, "")
		if locked {
			s.metrics.Lockout()
			s.audit.LogEvent(ctx, ident.ID, audit.ActionAccountLocked, auditResource, "")
			s.log.WithField("identity_id", ident.ID).Warn("account locked after repeated login failures")
		}
		return nil, apperr.New(apperr.ErrInvalidCredentials, msgInvalidCredentials)
	}
	if !ident.EmailVerified {
		s.metrics.Login(observability.OutcomeUnverified)
		return nil, apperr.New(apperr.ErrEmailNotVerified, msgEmailNotVerified)
	}
	if !ident.Active {
		s.metrics.Login(observability.OutcomeDeactivated)
		return nil, apperr.Forbidden(msgDeactivated)
	}
	return s.completeLogin(ctx, *ident, now)
}

func (s *AuthService) completeLogin(ctx context.Context, ident domain.Identity, now time.Time) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(ident.ID)
	if err != nil {
		return nil, err
	}
	next, muts := s.lockout.RegisterSuccess(ident, now)
	if err := s.repo.Update(ctx, ident.ID, muts...); err != nil {
		return nil, err
	}
	s.metrics.Login(observability.OutcomeSuccess)
	s.audit.LogEvent(ctx, ident.ID, audit.ActionLoginSuccess, auditResource, "")
	return &AuthResult{Identity: next.Public(), Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword replaces the password after checking the current one. Every
// token issued before the change stops authenticating; a fresh token is returned.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, current, next string) (*AuthResult, error) {
	ident, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, apperr.New(apperr.ErrUnauthenticated, "The user belonging to this token no longer exists")
	}
	if !s.hasher.Matches(ident.PasswordHash, current) {
		return nil, apperr.New(apperr.ErrInvalidCredentials, "Current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return nil, err
	}
	if current == next {
		return nil, apperr.Validation("new password must differ from the current password")
	}
	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return nil, err
	}
	updated, muts := domain.ChangePassword(*ident, hashed, s.now().UTC())
	if err := s.repo.Update(ctx, ident.ID, muts...); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, ident.ID, audit.ActionPasswordChanged, auditResource, "")
	token, expiresAt, err := s.tokens.Issue(ident.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Identity: updated.Public(), Token: token, ExpiresAt: expiresAt}, nil
}

// Get returns the identity without secrets, or NotFound.
func (s *AuthService) Get(ctx context.Context, identityID string) (*domain.Identity, error) {
	ident, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, apperr.NotFound("User not found")
	}
	out := ident.Public()
	return &out, nil
}

// UpdateProfile applies the self-editable fields. Year level only applies to students.
func (s *AuthService) UpdateProfile(ctx context.Context, identityID string, upd ProfileUpdate) (*domain.Identity, error) {
	ident, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, apperr.NotFound("User not found")
	}
	var muts []domain.Mutation
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if len(name) < 2 {
			return nil, apperr.Validation("name must be at least 2 characters")
		}
		muts = append(muts, domain.SetName(name))
	}
	if upd.Department != nil {
		muts = append(muts, domain.SetDepartment(strings.TrimSpace(*upd.Department)))
	}
	if upd.YearLevel != nil {
		if ident.Role != rbac.RoleStudent {
			return nil, apperr.Validation("year level only applies to students")
		}
		if *upd.YearLevel < 1 || *upd.YearLevel > 5 {
			return nil, apperr.Validation("year level must be between 1 and 5")
		}
		muts = append(muts, domain.SetYearLevel(*upd.YearLevel))
	}
	if len(muts) == 0 {
		return nil, apperr.Validation("no profile fields to update")
	}
	if err := s.repo.Update(ctx, ident.ID, muts...); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, ident.ID, audit.ActionProfileUpdated, "identity", "")
	out := domain.Apply(*ident, muts...).Public()
	return &out, nil
}

// deliverOTP emails the code and, in dev mode, stores it for GET /dev/otp.
// Delivery failures are logged; the caller can request a new code.
func (s *AuthService) deliverOTP(ctx context.Context, ident domain.Identity, code string, now time.Time) {
	if s.devOTP != nil {
		s.devOTP.Put(ctx, ident.Email, code, now.Add(s.otpTTL))
	}
	msg, err := email.OTPMessage(ident.Email, ident.Name, code, s.otpTTL, now)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log.WithError(err).WithField("identity_id", ident.ID).Warn("failed to send otp email")
	}
}

func (s *AuthService) sendVerificationLink(ctx context.Context, ident domain.Identity, raw string, now time.Time) {
	link := s.baseURL + "/auth/verify-email/" + raw
	msg, err := email.VerificationMessage(ident.Email, ident.Name, link, now)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log.WithError(err).WithField("identity_id", ident.ID).Warn("failed to send verification email")
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return apperr.Validation("email is required")
	}
	if !emailPattern.MatchString(email) {
		return apperr.Validation("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}
	if len(password) > 72 {
		return apperr.Validation("password must be at most 72 bytes")
	}
	return nil
}

func validateCredentials(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password)
}

// validateRegistration applies the per-role required fields.
func validateRegistration(role rbac.Role, in RegisterInput) error {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Name)) < 2 {
		return apperr.Validation("name must be at least 2 characters")
	}
	switch role {
	case rbac.RoleStudent:
		if strings.TrimSpace(in.StudentID) == "" {
			return apperr.Validation("studentId is required")
		}
		if in.YearLevel < 1 || in.YearLevel > 5 {
			return apperr.Validation("yearLevel must be between 1 and 5")
		}
		if strings.TrimSpace(in.Department) == "" {
			return apperr.Validation("department is required")
		}
	case rbac.RoleStaff:
		if strings.TrimSpace(in.StaffID) == "" {
			return apperr.Validation("staffId is required")
		}
		if strings.TrimSpace(in.Department) == "" {
			return apperr.Validation("department is required")
		}
	}
	return nil
}
