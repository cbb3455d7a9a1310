package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/parsbill/parsbill/internal/clock"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoiceService struct {
	invoicedomain.Service

	markedAsOf []time.Time
	flipped    int64
	err        error
}

func (f *fakeInvoiceService) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	f.markedAsOf = append(f.markedAsOf, asOf)
	return f.flipped, f.err
}

func TestRunOnce_SweepsWithClockTime(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC))
	invoiceSvc := &fakeInvoiceService{flipped: 2}

	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      fakeClock,
		InvoiceSvc: invoiceSvc,
	})
	require.NoError(t, err)

	require.NoError(t, sched.RunOnce(context.Background()))
	require.Len(t, invoiceSvc.markedAsOf, 1)
	assert.Equal(t, fakeClock.Now(), invoiceSvc.markedAsOf[0])

	fakeClock.Advance(24 * time.Hour)
	require.NoError(t, sched.RunOnce(context.Background()))
	require.Len(t, invoiceSvc.markedAsOf, 2)
	assert.Equal(t, fakeClock.Now(), invoiceSvc.markedAsOf[1])
}

func TestRunOnce_TimeoutIsSoftFailure(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Now())
	invoiceSvc := &fakeInvoiceService{err: context.DeadlineExceeded}

	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      fakeClock,
		InvoiceSvc: invoiceSvc,
	})
	require.NoError(t, err)

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
