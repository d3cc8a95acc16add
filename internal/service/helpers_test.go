package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/feedback-service/internal/ai"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
)

var testPlants = []string{"P1", "P2", "BK"}

func newServiceStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Options{
		SnapshotPath: filepath.Join(t.TempDir(), "db.json"),
		UploadDir:    t.TempDir(),
		BcryptCost:   bcrypt.MinCost,
		SkipSeed:     true,
	})
	require.NoError(t, err)
	return s
}

// heuristicClassifier builds a classifier with no provider, so every verdict
// comes from the keyword heuristic.
func heuristicClassifier() *ai.Classifier {
	return ai.NewClassifier(nil, nil, nil, zap.NewNop(), time.Second)
}

func createAdminAccount(t *testing.T, s *store.Store, username string, department, plant *string) domain.User {
	t.Helper()
	user, err := s.CreateUser(store.CreateUserInput{
		Username:   username,
		Email:      username + "@example.com",
		Password:   "pw123456",
		Role:       domain.RoleAdmin,
		Department: department,
		Plant:      plant,
	})
	require.NoError(t, err)
	return user
}

func ptr[T any](v T) *T { return &v }

func lastAuditAction(s *store.Store) string {
	logs := s.ListAuditLogs()
	if len(logs) == 0 {
		return ""
	}
	return logs[len(logs)-1].Action
}

// failingMailer always reports delivery failure.
type failingMailer struct{}

func (failingMailer) Send(ctx context.Context, to, subject, body string) error {
	return errors.New("smtp unreachable")
}

// recordingMailer captures the last message it was asked to deliver.
type recordingMailer struct {
	to      string
	subject string
	body    string
	sends   int
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	m.sends++
	return nil
}
