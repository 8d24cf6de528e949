// Package account implements credential flows: profile logins, lodge
// selection, token refresh and password recovery.
package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sigma/internal/apperror"
	"sigma/internal/audit"
	"sigma/internal/auth"
	"sigma/internal/mailer"
	"sigma/internal/model"
	"sigma/internal/repository"
	"sigma/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// errInvalidCredentials is returned for every login failure mode so the
// response does not reveal whether the account exists.
var errInvalidCredentials = apperror.Unauthenticated("invalid email or password")

type Authenticator struct {
	logger   *slog.Logger
	repo     repository.Repository
	codec    *token.Codec
	auditor  *audit.Auditor
	mailer   mailer.Mailer
	resetTTL time.Duration
	now      func() time.Time
}

func NewAuthenticator(logger *slog.Logger, repo repository.Repository, codec *token.Codec, auditor *audit.Auditor, mailer mailer.Mailer, resetTTL time.Duration) Authenticator {
	return Authenticator{
		logger:   logger,
		repo:     repo,
		codec:    codec,
		auditor:  auditor,
		mailer:   mailer,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// WithClock overrides the authenticator's time source. Intended for tests.
func (a Authenticator) WithClock(now func() time.Time) Authenticator {
	a.now = now
	return a
}

type LoginParam struct {
	Email    string
	Password string
}

// TokenResult carries the issued bearer token and its lifetime in seconds.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (a *Authenticator) issue(claims map[string]any) (TokenResult, error) {
	signed, err := a.codec.Issue(claims, 0)
	if err != nil {
		return TokenResult{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return TokenResult{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(a.codec.TTL().Seconds()),
	}, nil
}

func (a *Authenticator) LoginSuperAdmin(ctx context.Context, param LoginParam) (TokenResult, error) {
	admin, err := a.repo.GetSuperAdminByEmail(ctx, param.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenResult{}, errInvalidCredentials
		}
		return TokenResult{}, fmt.Errorf("failed to get super admin by email: %w", err)
	}
	if !admin.Active || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(param.Password)) != nil {
		return TokenResult{}, errInvalidCredentials
	}

	result, err := a.issue(map[string]any{
		"profile":       string(auth.ProfileSuperAdmin),
		"superadmin_id": admin.ID.String(),
	})
	if err != nil {
		return TokenResult{}, err
	}

	a.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: admin.ID,
		Type:    audit.EventTypeSuperAdminLogin,
		Data:    map[string]any{"email": admin.Email},
	})
	return result, nil
}

func (a *Authenticator) LoginWebmaster(ctx context.Context, param LoginParam) (TokenResult, error) {
	webmaster, err := a.repo.GetWebmasterByEmail(ctx, param.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenResult{}, errInvalidCredentials
		}
		return TokenResult{}, fmt.Errorf("failed to get webmaster by email: %w", err)
	}
	if !webmaster.Active || bcrypt.CompareHashAndPassword([]byte(webmaster.PasswordHash), []byte(param.Password)) != nil {
		return TokenResult{}, errInvalidCredentials
	}

	result, err := a.issue(map[string]any{
		"profile":      string(auth.ProfileWebmaster),
		"webmaster_id": webmaster.ID.String(),
	})
	if err != nil {
		return TokenResult{}, err
	}

	a.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: webmaster.ID,
		Type:    audit.EventTypeWebmasterLogin,
		Data:    map[string]any{"email": webmaster.Email, "lodge_id": webmaster.LodgeID},
	})
	return result, nil
}

// LoginLodgeMember authenticates a member and binds the token to the member's
// oldest association. Members tied to several lodges switch with SelectLodge.
func (a *Authenticator) LoginLodgeMember(ctx context.Context, param LoginParam) (TokenResult, error) {
	member, err := a.repo.GetLodgeMemberByEmail(ctx, param.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenResult{}, errInvalidCredentials
		}
		return TokenResult{}, fmt.Errorf("failed to get lodge member by email: %w", err)
	}
	if !member.Active || bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(param.Password)) != nil {
		return TokenResult{}, errInvalidCredentials
	}

	association, err := a.repo.GetFirstAssociationForMember(ctx, member.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenResult{}, apperror.Forbidden("member has no lodge association")
		}
		return TokenResult{}, fmt.Errorf("failed to get association: %w", err)
	}

	result, err := a.issue(memberClaims(member.ID, association.ID))
	if err != nil {
		return TokenResult{}, err
	}

	a.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: member.ID,
		Type:    audit.EventTypeLodgeMemberLogin,
		Data:    map[string]any{"email": member.Email, "association_id": association.ID},
	})
	return result, nil
}

// SelectLodge reissues a member token bound to the association the member
// holds in the given lodge.
func (a *Authenticator) SelectLodge(ctx context.Context, identity auth.Identity, lodgeID uuid.UUID) (TokenResult, error) {
	if identity.Profile != auth.ProfileLodgeMember {
		return TokenResult{}, apperror.Forbidden("only lodge members can switch lodges")
	}

	association, err := a.repo.GetAssociationByMemberAndLodge(ctx, identity.Member.ID, lodgeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenResult{}, apperror.Forbidden("member is not associated with this lodge")
		}
		return TokenResult{}, fmt.Errorf("failed to get association: %w", err)
	}

	result, err := a.issue(memberClaims(identity.Member.ID, association.ID))
	if err != nil {
		return TokenResult{}, err
	}

	a.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: identity.Member.ID,
		Type:    audit.EventTypeLodgeSelect,
		Data:    map[string]any{"lodge_id": lodgeID, "association_id": association.ID},
	})
	return result, nil
}

// Refresh reissues a token for an already resolved identity, extending its
// lifetime. The identity was fully re-validated during resolution.
func (a *Authenticator) Refresh(ctx context.Context, identity auth.Identity) (TokenResult, error) {
	var claims map[string]any
	switch identity.Profile {
	case auth.ProfileSuperAdmin:
		claims = map[string]any{
			"profile":       string(auth.ProfileSuperAdmin),
			"superadmin_id": identity.SuperAdmin.ID.String(),
		}
	case auth.ProfileWebmaster:
		claims = map[string]any{
			"profile":      string(auth.ProfileWebmaster),
			"webmaster_id": identity.Webmaster.ID.String(),
		}
	case auth.ProfileLodgeMember:
		claims = memberClaims(identity.Member.ID, identity.Association.ID)
	default:
		return TokenResult{}, apperror.Unauthenticated("profile cannot refresh tokens")
	}

	result, err := a.issue(claims)
	if err != nil {
		return TokenResult{}, err
	}

	a.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: identity.AccountID(),
		Type:    audit.EventTypeTokenRefresh,
		Data:    map[string]any{"profile": identity.Profile},
	})
	return result, nil
}

func memberClaims(memberID, associationID uuid.UUID) map[string]any {
	return map[string]any{
		"profile":         string(auth.ProfileLodgeMember),
		"lodge_member_id": memberID.String(),
		"association_id":  associationID.String(),
	}
}

// ForgotPassword starts password recovery for a member. The outcome is
// indistinguishable whether or not the email is registered; the reset token
// is only ever delivered by email.
func (a *Authenticator) ForgotPassword(ctx context.Context, email string) error {
	member, err := a.repo.GetLodgeMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get lodge member by email: %w", err)
	}
	if !member.Active {
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	resetToken := hex.EncodeToString(raw)

	now := a.now()
	reset := model.PasswordReset{
		ID:            uuid.New(),
		Token:         resetToken,
		LodgeMemberID: member.ID,
		ExpiresAt:     now.Add(a.resetTTL),
		CreatedAt:     now,
	}
	if err := a.repo.CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}

	// Delivery is fire and forget; a mail failure must not expose whether
	// the account exists.
	go func() {
		if err := a.mailer.SendPasswordReset(context.WithoutCancel(ctx), member.Email, resetToken); err != nil {
			a.logger.Error("failed to send password reset email", "error", err)
		}
	}()

	a.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: member.ID,
		Type:    audit.EventTypePasswordForgot,
		Data:    map[string]any{"email": member.Email},
	})
	return nil
}

// ResetPassword consumes a reset token and replaces the member's password.
// Tokens are single use and expire after the configured TTL.
func (a *Authenticator) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	reset, err := a.repo.GetPasswordResetByToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.BadRequest("invalid or expired reset token")
		}
		return fmt.Errorf("failed to get password reset: %w", err)
	}

	now := a.now()
	if reset.UsedAt.IsSet || now.After(reset.ExpiresAt) {
		return apperror.BadRequest("invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.repo.UpdateLodgeMemberPassword(ctx, reset.LodgeMemberID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := a.repo.MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
		return fmt.Errorf("failed to mark reset used: %w", err)
	}

	a.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: reset.LodgeMemberID,
		Type:    audit.EventTypePasswordReset,
		Data:    map[string]any{"reset_id": reset.ID},
	})
	return nil
}

// HashPassword wraps bcrypt for account provisioning flows.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
