// Package middleware provides request-scoped middleware for the Gin web framework.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryConfig configures error recovery behavior
type ErrorRecoveryConfig struct {
	// EnableCircuitBreaker rejects requests with 503 after repeated server errors
	EnableCircuitBreaker bool
	// CircuitBreakerThreshold specifies failure threshold for circuit breaker
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout specifies how long to wait before retrying after circuit opens
	CircuitBreakerTimeout time.Duration
}

// DefaultErrorRecoveryConfig returns a default error recovery configuration
func DefaultErrorRecoveryConfig() *ErrorRecoveryConfig {
	return &ErrorRecoveryConfig{
		EnableCircuitBreaker:    false,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// circuitBreakerState represents the state of a circuit breaker
type circuitBreakerState int

const (
	circuitClosed circuitBreakerState = iota
	circuitOpen
	circuitHalfOpen
)

// circuitBreaker tracks failures and manages circuit state
type circuitBreaker struct {
	mu          sync.Mutex
	state       circuitBreakerState
	failures    int
	lastFailure time.Time
	config      *ErrorRecoveryConfig
}

func newCircuitBreaker(config *ErrorRecoveryConfig) *circuitBreaker {
	return &circuitBreaker{state: circuitClosed, config: config}
}

// canExecute checks if the circuit breaker allows execution
func (cb *circuitBreaker) canExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed, circuitHalfOpen:
		return true
	case circuitOpen:
		if time.Since(cb.lastFailure) > cb.config.CircuitBreakerTimeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == circuitHalfOpen {
		cb.failures = 0
		cb.state = circuitClosed
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = time.Now()
	if cb.failures >= cb.config.CircuitBreakerThreshold || cb.state == circuitHalfOpen {
		cb.state = circuitOpen
	}
}

func (cb *circuitBreaker) currentState() circuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ErrorRecoveryMiddleware answers panics with an INTERNAL_SERVER_ERROR body and,
// when enabled, trips a circuit breaker on repeated 5xx responses.
func ErrorRecoveryMiddleware(logger *observability.Logger, config *ErrorRecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultErrorRecoveryConfig()
	}

	var cb *circuitBreaker
	if config.EnableCircuitBreaker {
		cb = newCircuitBreaker(config)
	}

	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				stackTrace := string(debug.Stack())

				panicErr, ok := recovered.(error)
				if !ok {
					panicErr = fmt.Errorf("panic: %v", recovered)
				}
				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
						"http.method": c.Request.Method,
						"http.path":   c.Request.URL.Path,
						"stack":       stackTrace,
					})
				}

				appErr := contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
					panicErr,
				)
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}
				if cb != nil {
					cb.recordFailure()
				}
				abortWithAppError(c, http.StatusInternalServerError, appErr)
			}
		}()

		if cb != nil && !cb.canExecute() {
			abortWithAppError(c, http.StatusServiceUnavailable,
				contextutils.ErrServiceUnavailable.With("temporarily unavailable due to high error rate", nil))
			return
		}

		c.Next()

		if cb != nil {
			if c.Writer.Status() >= http.StatusInternalServerError {
				cb.recordFailure()
			} else {
				cb.recordSuccess()
			}
		}
	}
}

// abortWithAppError writes the AppError JSON body and stops the chain
func abortWithAppError(c *gin.Context, status int, appErr *contextutils.AppError) {
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(status, appErr.ToJSON())
}
