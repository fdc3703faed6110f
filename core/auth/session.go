package auth

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"vigil-irs/config"
	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

var ErrSessionExpired = errors.New("session expired")

type SessionManager struct {
	store  store.SessionStore
	cfg    *config.AppConfig
	logger *utils.Logger
}

func NewSessionManager(st store.SessionStore, cfg *config.AppConfig, logger *utils.Logger) *SessionManager {
	return &SessionManager{store: st, cfg: cfg, logger: logger}
}

func (m *SessionManager) Create(ctx context.Context, user *store.User) (*store.SessionRecord, error) {
	id := uuid.Must(uuid.NewV4()).String()
	now := utils.NowUTC()
	sess := &store.SessionRecord{
		ID:         id,
		UserID:     user.ID,
		Username:   user.Username,
		Role:       user.Role,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.cfg.EffectiveSessionTTL()),
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *SessionManager) Resolve(ctx context.Context, id string) (*store.SessionRecord, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	now := utils.NowUTC()
	if now.After(sess.ExpiresAt) {
		_ = m.store.DeleteSession(ctx, id)
		return nil, ErrSessionExpired
	}
	return sess, nil
}

func (m *SessionManager) Touch(ctx context.Context, id string) {
	if err := m.store.UpdateActivity(ctx, id, utils.NowUTC(), m.cfg.EffectiveSessionTTL()); err != nil && m.logger != nil {
		m.logger.Errorf("session touch %s: %v", id, err)
	}
}

func (m *SessionManager) Destroy(ctx context.Context, id string) error {
	return m.store.DeleteSession(ctx, id)
}
