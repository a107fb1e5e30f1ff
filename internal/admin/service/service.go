package service

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/audit"
	auditdomain "prepmaster/backend/internal/audit/domain"
	auditrepo "prepmaster/backend/internal/audit/repository"
	"prepmaster/backend/internal/identity/domain"
	identityrepo "prepmaster/backend/internal/identity/repository"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/platform/rbac"
	questionrepo "prepmaster/backend/internal/question/repository"
)

// RoleDistribution is the per-role line of the user statistics.
type RoleDistribution struct {
	Role             rbac.Role `json:"role"`
	Count            int       `json:"count"`
	VerifiedUsers    int       `json:"verifiedUsers"`
	VerificationRate float64   `json:"verificationRate"`
}

// UserStats summarises accounts. Rates are percentages rounded to two decimals.
type UserStats struct {
	TotalUsers       int                `json:"totalUsers"`
	VerifiedUsers    int                `json:"verifiedUsers"`
	VerificationRate float64            `json:"verificationRate"`
	RoleDistribution []RoleDistribution `json:"roleDistribution"`
}

// Stats is the GET /admin/stats payload.
type Stats struct {
	Users     UserStats          `json:"users"`
	Questions questionrepo.Stats `json:"questions"`
}

// AdminService implements user management, statistics and the audit-log listing.
type AdminService struct {
	identities identityrepo.Repository
	questions  questionrepo.Repository
	auditLogs  auditrepo.Repository
	audit      audit.AuditLogger
	log        logrus.FieldLogger
}

// NewAdminService returns an AdminService. auditLogs may be nil when audit logs are not persisted.
func NewAdminService(identities identityrepo.Repository, questions questionrepo.Repository, auditLogs auditrepo.Repository, auditLogger audit.AuditLogger, log logrus.FieldLogger) *AdminService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AdminService{identities: identities, questions: questions, auditLogs: auditLogs, audit: auditLogger, log: log}
}

// ListUsers returns one page of identities without secrets.
func (s *AdminService) ListUsers(ctx context.Context, f identityrepo.ListFilter) ([]domain.Identity, int, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, 0, apperr.Validation("invalid role filter")
	}
	items, total, err := s.identities.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Identity, len(items))
	for k, i := range items {
		out[k] = i.Public()
	}
	return out, total, nil
}

// GetUser returns one identity without secrets, or NotFound.
func (s *AdminService) GetUser(ctx context.Context, id string) (*domain.Identity, error) {
	target, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NotFound("User not found")
	}
	out := target.Public()
	return &out, nil
}

// DeleteUser removes an identity and the questions it created. The actor's role must outrank the target's.
func (s *AdminService) DeleteUser(ctx context.Context, actor *domain.Identity, id string) error {
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	removed, err := s.questions.DeleteByCreator(ctx, target.ID)
	if err != nil {
		return err
	}
	ok, err := s.identities.Delete(ctx, target.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("User not found")
	}
	s.audit.LogEvent(ctx, actor.ID, audit.ActionIdentityDeleted, "identity", target.ID)
	s.log.WithFields(logrus.Fields{"actor_id": actor.ID, "identity_id": target.ID, "questions_removed": removed}).Info("identity deleted")
	return nil
}

func (s *AdminService) manageable(ctx context.Context, actor *domain.Identity, id string) (*domain.Identity, error) {
	target, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NotFound("User not found")
	}
	if actor == nil || !actor.Role.Outranks(target.Role) {
		return nil, apperr.Forbidden("You cannot manage a user with an equal or higher role")
	}
	return target, nil
}

// SetActive activates or deactivates an identity. The actor's role must outrank the target's.
func (s *AdminService) SetActive(ctx context.Context, actor *domain.Identity, id string, active bool) (*domain.Identity, error) {
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.identities.Update(ctx, id, domain.SetActive(active)); err != nil {
		return nil, err
	}
	action := audit.ActionIdentityDeactivated
	if active {
		action = audit.ActionIdentityActivated
	}
	s.audit.LogEvent(ctx, actor.ID, action, "identity", id)
	s.log.WithFields(logrus.Fields{"actor_id": actor.ID, "identity_id": id, "active": active}).Info("identity status changed")
	out := domain.Apply(*target, domain.SetActive(active)).Public()
	return &out, nil
}

// Stats returns user and question statistics.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	byRole, err := s.identities.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	qs, err := s.questions.Stats(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Questions: qs, Users: UserStats{RoleDistribution: make([]RoleDistribution, 0, len(byRole))}}
	for _, r := range byRole {
		st.Users.TotalUsers += r.Total
		st.Users.VerifiedUsers += r.Verified
		st.Users.RoleDistribution = append(st.Users.RoleDistribution, RoleDistribution{
			Role: r.Role, Count: r.Total, VerifiedUsers: r.Verified, VerificationRate: rate(r.Verified, r.Total),
		})
	}
	st.Users.VerificationRate = rate(st.Users.VerifiedUsers, st.Users.TotalUsers)
	return st, nil
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// AuditLogs lists audit entries newest first. Without a persistent store the list is empty.
func (s *AdminService) AuditLogs(ctx context.Context, f auditrepo.Filter) ([]*auditdomain.AuditLog, error) {
	if s.auditLogs == nil {
		return []*auditdomain.AuditLog{}, nil
	}
	return s.auditLogs.List(ctx, f)
}
