package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify_ExplicitMarks(t *testing.T) {
	err := errors.New("anything at all")

	assert.True(t, Classify(Transient(err)).IsTransient())
	assert.False(t, Classify(Terminal(err)).IsTransient())

	// Marks survive wrapping.
	wrapped := fmt.Errorf("outer: %w", Transient(err))
	assert.True(t, Classify(wrapped).IsTransient())
}

func TestClassify_TaxonomyKinds(t *testing.T) {
	assert.True(t, Classify(errs.New(errs.KindRPCTransient, "rpc wobble")).IsTransient())
	assert.False(t, Classify(errs.New(errs.KindRPCFatal, "reverted")).IsTransient())
	assert.False(t, Classify(errs.Validationf("bad input")).IsTransient())
	assert.False(t, Classify(errs.New(errs.KindInsufficientBalance, "too poor")).IsTransient())
}

func TestClassify_ContextErrors(t *testing.T) {
	assert.False(t, Classify(context.Canceled).IsTransient())
	assert.True(t, Classify(context.DeadlineExceeded).IsTransient())
}

func TestClassify_GRPCStatus(t *testing.T) {
	assert.True(t, Classify(status.Error(codes.Unavailable, "down")).IsTransient())
	assert.True(t, Classify(status.Error(codes.ResourceExhausted, "quota")).IsTransient())
	assert.False(t, Classify(status.Error(codes.InvalidArgument, "bad")).IsTransient())
}

func TestClassify_MessageTokens(t *testing.T) {
	assert.True(t, Classify(errors.New("http status 503: bad gateway")).IsTransient())
	assert.True(t, Classify(errors.New("too many requests")).IsTransient())
	assert.False(t, Classify(errors.New("execution reverted: ERC20: burn exceeds balance")).IsTransient())
	assert.False(t, Classify(errors.New("something inexplicable")).IsTransient(),
		"unknown errors default terminal")
}

func TestClassifyJSONRPCCode(t *testing.T) {
	assert.True(t, ClassifyJSONRPCCode(-32603).IsTransient())
	assert.True(t, ClassifyJSONRPCCode(-32050).IsTransient())
	assert.False(t, ClassifyJSONRPCCode(-32602).IsTransient()) // invalid params
}

func TestBudgetFor(t *testing.T) {
	assert.Equal(t, 3, BudgetFor(model.TxTypeTokenMint))
	assert.Equal(t, 3, BudgetFor(model.TxTypeStakingStake))
	assert.Equal(t, 5, BudgetFor(model.TxTypeCrossChain))
}

func TestDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, Delay(1))
	assert.Equal(t, 4*time.Second, Delay(2))
	assert.Equal(t, 8*time.Second, Delay(3))
	assert.Equal(t, time.Minute, Delay(10), "capped")
	assert.Equal(t, 2*time.Second, Delay(0), "floor at first attempt")
}
