// Package retry classifies worker errors as transient or terminal and
// owns the per-kind retry budgets and backoff schedule.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

type classifiedError struct {
	err    error
	class  Class
	reason string
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

// Transient marks err as retryable regardless of its content.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTransient, reason: "explicit_transient"}
}

// Terminal marks err as non-retryable regardless of its content.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTerminal, reason: "explicit_terminal"}
}

// Classify decides whether a worker error should be retried.
// Precedence: explicit marks, taxonomy kinds, context errors, gRPC status
// (collaborator services), net timeouts, then message tokens. Unknown
// errors default terminal so a bad payload cannot retry forever.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: marked.reason}
	}

	switch errs.KindOf(err) {
	case errs.KindRPCTransient:
		return Decision{Class: ClassTransient, Reason: "rpc_transient"}
	case errs.KindRPCFatal:
		return Decision{Class: ClassTerminal, Reason: "rpc_fatal"}
	case errs.KindValidation, errs.KindUnknownNetwork, errs.KindUnsupportedBridge,
		errs.KindInsufficientBalance, errs.KindTemplateNotFound, errs.KindContractNotFound,
		errs.KindDuplicateListing, errs.KindExpiredOffer, errs.KindNotFound:
		return Decision{Class: ClassTerminal, Reason: "domain_terminal"}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	if grpcStatus, ok := status.FromError(err); ok && grpcStatus.Code() != codes.Unknown {
		switch grpcStatus.Code() {
		case codes.Canceled:
			return Decision{Class: ClassTerminal, Reason: "grpc_canceled"}
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return Decision{Class: ClassTransient, Reason: "grpc_" + strings.ToLower(grpcStatus.Code().String())}
		default:
			return Decision{Class: ClassTerminal, Reason: "grpc_" + strings.ToLower(grpcStatus.Code().String())}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, terminalMessageTokens) {
		return Decision{Class: ClassTerminal, Reason: "message_terminal"}
	}
	if containsAny(lower, transientMessageTokens) {
		return Decision{Class: ClassTransient, Reason: "message_transient"}
	}

	return Decision{Class: ClassTerminal, Reason: "unknown_terminal_default"}
}

// ClassifyJSONRPCCode maps a JSON-RPC error code to a retry decision.
// Server-side codes (-32000..-32099) are transient; the rest terminal.
func ClassifyJSONRPCCode(code int) Decision {
	if code == -32603 || code == -32005 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_transient"}
	}
	if code <= -32000 && code >= -32099 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_range"}
	}
	return Decision{Class: ClassTerminal, Reason: "jsonrpc_terminal"}
}

const (
	defaultAttemptBudget = 3
	// Bridge settlement windows span chains; allow a longer budget.
	bridgeAttemptBudget = 5

	backoffBase = 2 * time.Second
	backoffCap  = time.Minute
)

// BudgetFor returns the bounded attempt count for a transaction kind.
func BudgetFor(kind model.TxType) int {
	if kind == model.TxTypeCrossChain {
		return bridgeAttemptBudget
	}
	return defaultAttemptBudget
}

// Delay returns the exponential backoff delay before the given attempt
// (1-based): base * 2^(attempt-1), capped.
func Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase << uint(attempt-1)
	if d > backoffCap || d <= 0 {
		return backoffCap
	}
	return d
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"econnreset",
	"econnrefused",
	"too many requests",
	"rate limit",
	"http status 429",
	"http status 502",
	"http status 503",
	"http status 504",
	"server closed idle connection",
}

var terminalMessageTokens = []string{
	"invalid argument",
	"invalid params",
	"method not found",
	"parse error",
	"execution reverted",
	"insufficient funds",
	"nonce too low",
	"not found",
	"constraint violation",
}
