// Package signup composes identity-gateway calls into the multi-step
// workflow that provisions a new organization and its first user.
package signup

import (
	"context"
	"errors"
	"fmt"

	"github.com/loginlab/loginlab/pkg/config"
	"github.com/loginlab/loginlab/pkg/identity"
	"github.com/loginlab/loginlab/pkg/observability"
)

var (
	// ErrMissingField indicates a required sign-up field was absent
	ErrMissingField = errors.New("email, organization name, code, and password are required")
	// ErrOrgExists indicates the organization slug is already taken
	ErrOrgExists = errors.New("an organization with this code already exists")
	// ErrUserExists indicates the email is already registered under the
	// default connection
	ErrUserExists = errors.New("a user with this email already exists")
)

// Request carries the sign-up input. Every field is required.
type Request struct {
	Email    string `json:"email"`
	OrgName  string `json:"orgName"`
	OrgCode  string `json:"orgCode"`
	Password string `json:"password"`
}

// Result is the successful sign-up outcome. The caller initiates login
// separately.
type Result struct {
	Message        string `json:"message"`
	OrganizationID string `json:"organizationId"`
}

// Service orchestrates organization provisioning. There is no
// compensation: a failure mid-sequence aborts the remaining steps and
// surfaces, leaving the completed steps in place for an operator.
type Service struct {
	identity identity.Service
	cfg      config.Auth0Config
	metrics  *observability.Metrics
}

// NewService creates a sign-up Service
func NewService(idsvc identity.Service, cfg config.Auth0Config, metrics *observability.Metrics) *Service {
	return &Service{identity: idsvc, cfg: cfg, metrics: metrics}
}

// SignUp provisions a new organization with its first user: conflict
// checks, organization creation, connection enablement, user creation,
// membership and default role assignment.
func (s *Service) SignUp(ctx context.Context, req Request) (*Result, error) {
	if req.Email == "" || req.OrgName == "" || req.OrgCode == "" || req.Password == "" {
		return nil, s.fail("invalid", ErrMissingField)
	}

	logger := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"email":    req.Email,
		"org_code": req.OrgCode,
	})

	existing, err := s.identity.OrganizationByName(ctx, req.OrgCode)
	if err != nil {
		return nil, s.fail("error", err)
	}
	if existing != nil {
		return nil, s.fail("conflict", fmt.Errorf("%w: %s", ErrOrgExists, req.OrgCode))
	}

	user, err := s.identity.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, s.fail("error", err)
	}
	if user != nil {
		return nil, s.fail("conflict", fmt.Errorf("%w: %s", ErrUserExists, req.Email))
	}

	org, err := s.identity.CreateOrganization(ctx, req.OrgCode, req.OrgName)
	if err != nil {
		return nil, s.fail("error", err)
	}
	logger = logger.WithField("org_id", org.ID)
	logger.Info("organization created")

	if s.cfg.InternalAdminConnectionID != "" {
		if err := s.identity.AddConnectionToOrganization(ctx, org.ID, s.cfg.InternalAdminConnectionID, false); err != nil {
			return nil, s.fail("error", err)
		}
	}
	if s.cfg.DefaultConnectionID != "" {
		if err := s.identity.AddConnectionToOrganization(ctx, org.ID, s.cfg.DefaultConnectionID, true); err != nil {
			return nil, s.fail("error", err)
		}
	}

	user, err = s.identity.CreateUser(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.fail("error", err)
	}

	if err := s.identity.AddMemberToOrganization(ctx, org.ID, user.UserID); err != nil {
		return nil, s.fail("error", err)
	}

	if len(s.cfg.DefaultAdminRoles) > 0 {
		if err := s.identity.AssignRolesToMember(ctx, org.ID, user.UserID, s.cfg.DefaultAdminRoles); err != nil {
			return nil, s.fail("error", err)
		}
	}

	logger.WithField("user_id", user.UserID).Info("sign-up completed")
	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues("created").Inc()
	}

	return &Result{
		Message:        "Sign-up process completed successfully. Please log in.",
		OrganizationID: org.ID,
	}, nil
}

func (s *Service) fail(result string, err error) error {
	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues(result).Inc()
	}
	return err
}
