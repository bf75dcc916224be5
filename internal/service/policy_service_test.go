package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type mockLedger struct {
	admitted    bool
	err         error
	failures    int
	calls       int
	lastShareID string
}

func (m *mockLedger) TryIncrementUsage(ctx context.Context, id string, now time.Time) (bool, error) {
	m.calls++
	m.lastShareID = id
	if m.failures > 0 {
		m.failures--
		return false, m.err
	}
	return m.admitted, nil
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestPolicyEvaluate(t *testing.T) {
	svc := NewPolicyService(&mockLedger{}, zap.NewNop(), PolicyConfig{})
	now := time.Now()

	assert.NoError(t, svc.Evaluate(&models.SharedView{}, now))
	assert.NoError(t, svc.Evaluate(&models.SharedView{ExpiresAt: timePtr(now.Add(time.Hour))}, now))
	assert.NoError(t, svc.Evaluate(&models.SharedView{MaxUses: intPtr(5), CurrentUses: 4}, now))

	err := svc.Evaluate(nil, now)
	assert.True(t, appErrors.Is(err, appErrors.ErrShareNotFound))

	err = svc.Evaluate(&models.SharedView{ExpiresAt: timePtr(now.Add(-time.Minute))}, now)
	assert.True(t, appErrors.Is(err, appErrors.ErrShareExpired))

	// The boundary instant is already expired.
	err = svc.Evaluate(&models.SharedView{ExpiresAt: timePtr(now)}, now)
	assert.True(t, appErrors.Is(err, appErrors.ErrShareExpired))

	err = svc.Evaluate(&models.SharedView{MaxUses: intPtr(5), CurrentUses: 5}, now)
	assert.True(t, appErrors.Is(err, appErrors.ErrUsesExhausted))

	// Expiry is checked before exhaustion.
	err = svc.Evaluate(&models.SharedView{ExpiresAt: timePtr(now.Add(-time.Minute)), MaxUses: intPtr(1), CurrentUses: 1}, now)
	assert.True(t, appErrors.Is(err, appErrors.ErrShareExpired))
}

func TestPolicyAdmit(t *testing.T) {
	ledger := &mockLedger{admitted: true}
	svc := NewPolicyService(ledger, zap.NewNop(), PolicyConfig{AdmitRetryDelay: time.Millisecond})

	err := svc.Admit(context.Background(), "share-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.calls)
	assert.Equal(t, "share-1", ledger.lastShareID)
}

func TestPolicyAdmitExhausted(t *testing.T) {
	svc := NewPolicyService(&mockLedger{admitted: false}, zap.NewNop(), PolicyConfig{AdmitRetryDelay: time.Millisecond})

	err := svc.Admit(context.Background(), "share-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrUsesExhausted))
}

func TestPolicyAdmitRetriesContention(t *testing.T) {
	ledger := &mockLedger{admitted: true, err: &pq.Error{Code: "40001"}, failures: 2}
	svc := NewPolicyService(ledger, zap.NewNop(), PolicyConfig{AdmitRetries: 3, AdmitRetryDelay: time.Millisecond})

	err := svc.Admit(context.Background(), "share-1")
	require.NoError(t, err)
	assert.Equal(t, 3, ledger.calls)
}

func TestPolicyAdmitContentionExhaustsRetries(t *testing.T) {
	ledger := &mockLedger{err: &pq.Error{Code: "40P01"}, failures: 10}
	svc := NewPolicyService(ledger, zap.NewNop(), PolicyConfig{AdmitRetries: 2, AdmitRetryDelay: time.Millisecond})

	err := svc.Admit(context.Background(), "share-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrTemporary))
	assert.Equal(t, 3, ledger.calls)
}

func TestPolicyAdmitPermanentErrorNotRetried(t *testing.T) {
	ledger := &mockLedger{err: errors.New("connection refused"), failures: 1}
	svc := NewPolicyService(ledger, zap.NewNop(), PolicyConfig{AdmitRetries: 3, AdmitRetryDelay: time.Millisecond})

	err := svc.Admit(context.Background(), "share-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, 1, ledger.calls)
}
