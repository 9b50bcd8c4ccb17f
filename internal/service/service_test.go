package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mathwizard/internal/config"
	"mathwizard/internal/credentials"
	"mathwizard/internal/database"
	"mathwizard/internal/models"
	"mathwizard/internal/repository"
)

const (
	testAdminEmail    = "admin@mathwizard.test"
	testAdminPassword = "admin-secret"
)

type sentVerification struct {
	to, name, token, code string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentVerification
	err  error
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, toEmail, toName, token, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentVerification{to: toEmail, name: toName, token: token, code: code})
	return m.err
}

func (m *fakeMailer) last() sentVerification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	db       *database.DB
	parents  *repository.ParentRepository
	schools  *repository.SchoolRepository
	children *repository.ChildRepository
	partners *repository.PartnerRepository
	logs     *repository.SystemLogRepository
	topics   *repository.TopicRepository
	codec    *credentials.Codec
	mailer   *fakeMailer

	auth    *AuthService
	roster  *RosterService
	partner *PartnerService
	parent  *ParentService
	audit   *AuditService
	admin   *AdminService
	topic   *TopicService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))

	env := &testEnv{
		db:       db,
		parents:  repository.NewParentRepository(db),
		schools:  repository.NewSchoolRepository(db),
		children: repository.NewChildRepository(db),
		partners: repository.NewPartnerRepository(db),
		logs:     repository.NewSystemLogRepository(db),
		topics:   repository.NewTopicRepository(db),
		codec:    credentials.NewCodec(bcrypt.MinCost),
		mailer:   &fakeMailer{},
	}

	authCfg := config.AuthConfig{
		AdminEmail:       testAdminEmail,
		AdminPassword:    testAdminPassword,
		LegacyChildLogin: true,
	}
	env.auth = NewAuthService(env.parents, env.schools, env.children, env.codec, credentials.NewIssuer(), env.mailer, authCfg)
	env.roster = NewRosterService(env.parents, env.children, env.codec)
	env.partner = NewPartnerService(env.parents, env.partners, env.codec)
	env.parent = NewParentService(env.parents)
	env.audit = NewAuditService(env.logs)
	env.admin = NewAdminService(env.parents, env.schools, env.audit)
	env.topic = NewTopicService(env.topics)
	return env
}

// registerVerifiedParent registers a parent through the auth service and consumes the emailed token
func (e *testEnv) registerVerifiedParent(t *testing.T, email string, maxChildren int) *models.ParentAccount {
	t.Helper()
	ctx := context.Background()
	p, err := e.auth.RegisterParent(ctx, RegisterParentInput{
		Name:        "Pat Parent",
		Email:       email,
		Password:    "password123",
		MaxChildren: maxChildren,
	})
	require.NoError(t, err)
	require.NoError(t, e.auth.VerifyToken(ctx, e.mailer.last().token))
	return p
}

// requireKind asserts err is classified under kind
func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	require.Error(t, err)
	if !errors.Is(err, kind) {
		t.Fatalf("error %q is not of kind %q", err, kind)
	}
}

func insertLegacyParent(t *testing.T, e *testEnv, email, password string) *models.ParentAccount {
	t.Helper()
	p := &models.ParentAccount{
		ID:          uuid.NewString(),
		Name:        "Legacy Parent",
		Email:       email,
		Password:    password,
		MaxChildren: 3,
		Verified:    true,
	}
	require.NoError(t, e.parents.CreateParent(context.Background(), p))
	return p
}
