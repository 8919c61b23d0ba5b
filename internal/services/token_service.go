// internal/services/token_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/config"
	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/utils"
)

const (
	detailTokenInvalid     = "Token is invalid or expired"
	detailTokenBlacklisted = "Token is blacklisted"
	detailTokenWrongType   = "Token has wrong type"
	detailTokenNoUser      = "User not found"
)

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenService issues access/refresh JWTs and keeps the refresh-token
// blacklist. Every issued refresh token is recorded as outstanding.
type TokenService struct {
	db     *gorm.DB
	cfg    config.JWTConfig
	signer *utils.JWTSigner
	cache  BlacklistCache
}

func NewTokenService(db *gorm.DB, cfg *config.Config) *TokenService {
	return &TokenService{
		db:     db,
		cfg:    cfg.JWT,
		signer: utils.NewJWTSigner(cfg.JWT.SecretKey),
		cache:  noopBlacklistCache{},
	}
}

// SetCache puts a BlacklistCache in front of the blacklist table.
func (s *TokenService) SetCache(cache BlacklistCache) {
	if cache == nil {
		cache = noopBlacklistCache{}
	}
	s.cache = cache
}

func tokenError(detail string) *apperror.Error {
	return apperror.New(apperror.KindAuthentication, apperror.CodeTokenNotValid, detail)
}

// Issue returns a fresh access/refresh pair for user.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	refresh, err := s.issueRefresh(s.db.WithContext(ctx), user.ID)
	if err != nil {
		return nil, err
	}
	access, err := s.issueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *TokenService) issueAccess(userID uint) (string, error) {
	token, _, err := s.signer.Sign(models.TokenTypeAccess, userID, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, nil
}

func (s *TokenService) issueRefresh(tx *gorm.DB, userID uint) (string, error) {
	token, claims, err := s.signer.Sign(models.TokenTypeRefresh, userID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	outstanding := &models.OutstandingToken{
		UserID:    &userID,
		JTI:       claims.ID,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := tx.Omit(clause.Associations).Create(outstanding).Error; err != nil {
		return "", fmt.Errorf("failed to record refresh token: %w", err)
	}
	return token, nil
}

// ParseAccess validates an access token presented in an Authorization header.
func (s *TokenService) ParseAccess(token string) (*utils.TokenClaims, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, tokenError(detailTokenInvalid)
	}
	if claims.TokenType != models.TokenTypeAccess {
		return nil, tokenError(detailTokenWrongType)
	}
	return claims, nil
}

// parseRefresh validates signature, expiry, type and blacklist membership.
func (s *TokenService) parseRefresh(ctx context.Context, token string) (*utils.TokenClaims, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, tokenError(detailTokenInvalid)
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, tokenError(detailTokenWrongType)
	}

	blacklisted, err := s.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, tokenError(detailTokenBlacklisted)
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation on,
// a new refresh token is returned as well and, if configured, the consumed
// one is blacklisted.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tokenError(detailTokenNoUser)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !user.IsActive {
		return nil, tokenError(detailTokenInvalid)
	}

	access, err := s.issueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	if !s.cfg.RotateRefreshTokens {
		return &TokenPair{Access: access}, nil
	}

	var rotated string
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if s.cfg.BlacklistAfterRotation {
			if err := s.blacklist(tx, refreshToken, claims); err != nil {
				return err
			}
		}
		rotated, err = s.issueRefresh(tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.cfg.BlacklistAfterRotation {
		s.markCached(ctx, claims)
	}
	return &TokenPair{Access: access, Refresh: rotated}, nil
}

// Verify accepts any valid token. Refresh tokens must also not be blacklisted.
func (s *TokenService) Verify(ctx context.Context, token string) error {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return tokenError(detailTokenInvalid)
	}
	if claims.TokenType == models.TokenTypeRefresh {
		blacklisted, err := s.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return err
		}
		if blacklisted {
			return tokenError(detailTokenBlacklisted)
		}
	}
	return nil
}

// Blacklist revokes a refresh token. Presenting an already revoked token is
// reported as token_not_valid; concurrent revocations of the same jti are
// harmless.
func (s *TokenService) Blacklist(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.blacklist(s.db.WithContext(ctx), refreshToken, claims); err != nil {
		return err
	}
	s.markCached(ctx, claims)

	logrus.WithField("user_id", claims.UserID).Info("Refresh token blacklisted")
	return nil
}

func (s *TokenService) blacklist(tx *gorm.DB, raw string, claims *utils.TokenClaims) error {
	var outstanding models.OutstandingToken
	err := tx.Where("jti = ?", claims.ID).First(&outstanding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		userID := claims.UserID
		outstanding = models.OutstandingToken{
			UserID:    &userID,
			JTI:       claims.ID,
			Token:     raw,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		err = tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
			Create(&outstanding).Error
		if err == nil && outstanding.ID == 0 {
			err = tx.Where("jti = ?", claims.ID).First(&outstanding).Error
		}
	}
	if err != nil {
		return fmt.Errorf("failed to load outstanding token: %w", err)
	}

	return insertBlacklisted(tx, []uint{outstanding.ID})
}

func insertBlacklisted(tx *gorm.DB, tokenIDs []uint) error {
	if len(tokenIDs) == 0 {
		return nil
	}
	rows := make([]models.BlacklistedToken, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		rows = append(rows, models.BlacklistedToken{TokenID: id})
	}
	err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_id"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to blacklist tokens: %w", err)
	}
	return nil
}

// BlacklistAllForUser revokes every outstanding refresh token of userID
// inside tx. It returns the revoked jtis so callers can update the cache
// once tx commits.
func (s *TokenService) BlacklistAllForUser(tx *gorm.DB, userID uint) ([]models.OutstandingToken, error) {
	var tokens []models.OutstandingToken
	err := tx.Where("user_id = ?", userID).
		Where("id NOT IN (?)", tx.Model(&models.BlacklistedToken{}).Select("token_id")).
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding tokens: %w", err)
	}

	ids := make([]uint, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.ID)
	}
	if err := insertBlacklisted(tx, ids); err != nil {
		return nil, err
	}
	return tokens, nil
}

// CacheBlacklisted pushes already committed blacklist entries into the cache.
func (s *TokenService) CacheBlacklisted(ctx context.Context, tokens []models.OutstandingToken) {
	for _, t := range tokens {
		if err := s.cache.MarkBlacklisted(ctx, t.JTI, time.Until(t.ExpiresAt)); err != nil {
			logrus.WithError(err).Warn("Failed to cache blacklisted token")
		}
	}
}

func (s *TokenService) markCached(ctx context.Context, claims *utils.TokenClaims) {
	if err := s.cache.MarkBlacklisted(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		logrus.WithError(err).Warn("Failed to cache blacklisted token")
	}
}

// IsBlacklisted consults the cache first and falls back to the database.
func (s *TokenService) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	hit, err := s.cache.IsBlacklisted(ctx, jti)
	if err != nil {
		logrus.WithError(err).Warn("Blacklist cache lookup failed")
	} else if hit {
		return true, nil
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.BlacklistedToken{}).
		Joins("JOIN outstanding_tokens ON outstanding_tokens.id = blacklisted_tokens.token_id").
		Where("outstanding_tokens.jti = ?", jti).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return count > 0, nil
}

// FlushExpired deletes outstanding tokens past their expiry together with
// their blacklist entries.
func (s *TokenService) FlushExpired(ctx context.Context) (int64, error) {
	var flushed int64
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		expired := tx.Model(&models.OutstandingToken{}).Select("id").Where("expires_at < ?", time.Now())
		if err := tx.Where("token_id IN (?)", expired).Delete(&models.BlacklistedToken{}).Error; err != nil {
			return err
		}
		res := tx.Where("expires_at < ?", time.Now()).Delete(&models.OutstandingToken{})
		flushed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to flush expired tokens: %w", err)
	}
	return flushed, nil
}
