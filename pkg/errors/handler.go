// Package errors is the anti-crash layer: it counts recovered panics and
// reported failures, and shuts the process down when too many happen inside
// one window.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/goccy/go-json"
)

const (
	DefaultMaxErrors     = 15
	DefaultResetInterval = 5 * time.Second
	defaultCheckInterval = time.Second
	maxStackReport       = 3500
)

// ErrorHandler manages error counting and reporting
type ErrorHandler struct {
	errorCount    atomic.Int32
	webhookURL    string
	stopChan      chan struct{}
	stopOnce      sync.Once
	shutdownFunc  func()
	exit          func(code int)
	client        *http.Client
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
}

// ReportErrorOptions contains options for reporting an error
type ReportErrorOptions struct {
	Error   string
	Message string
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
	})
	return handler
}

// Get returns the global error handler, nil before Init
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a handler and starts its monitoring goroutines
func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	h := newErrorHandler(webhookURL, shutdownFunc, DefaultResetInterval, defaultCheckInterval)
	h.start()
	return h
}

func newErrorHandler(webhookURL string, shutdownFunc func(), reset, check time.Duration) *ErrorHandler {
	return &ErrorHandler{
		webhookURL:    webhookURL,
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		exit:          os.Exit,
		client:        &http.Client{Timeout: 10 * time.Second},
		maxErrors:     DefaultMaxErrors,
		resetInterval: reset,
		checkInterval: check,
	}
}

func (h *ErrorHandler) start() {
	go func() {
		ticker := time.NewTicker(h.resetInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.errorCount.Store(0)
			case <-h.stopChan:
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(h.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if h.Exceeded() {
					h.crash()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

// Exceeded reports whether the current window holds more errors than allowed
func (h *ErrorHandler) Exceeded() bool {
	return h.errorCount.Load() > h.maxErrors
}

func (h *ErrorHandler) crash() {
	start := time.Now()
	logger.Warn("Se detectó un número demasiado alto de errores", "CRITICAL")
	logger.Warn("Apagando...", "CRITICAL")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "CRITICAL")
	h.exit(1)
}

// Stop stops the monitoring goroutines. It is safe to call more than once.
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// IncrementError counts one error in the current window
func (h *ErrorHandler) IncrementError() int32 {
	count := h.errorCount.Add(1)
	logger.Error(fmt.Sprintf("Errores en la ventana actual: %d", count), "AntiCrash")
	return count
}

// ErrorCount returns the errors counted in the current window
func (h *ErrorHandler) ErrorCount() int32 {
	return h.errorCount.Load()
}

// HandlePanic handles a recovered panic
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.IncrementError()
	logger.Debug("Panic no controlado", "AntiCrash")
	logger.Error(fmt.Sprintf("%v", recovered), "SYS")
}

type reportEmbed struct {
	Author      map[string]string `json:"author"`
	Description string            `json:"description"`
	Color       int               `json:"color"`
	Footer      map[string]string `json:"footer"`
	Timestamp   string            `json:"timestamp"`
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	payload := map[string][]reportEmbed{
		"embeds": {{
			Author:      map[string]string{"name": "Error " + data.Error},
			Description: data.Message,
			Color:       0xFF0000,
			Footer:      map[string]string{"text": "PancyMod"},
			Timestamp:   time.Now().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo serializar el reporte: %v", err), "AntiCrash")
		return
	}

	resp, err := h.client.Post(h.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo enviar el reporte: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Reporte enviado al webhook, estado: %d", resp.StatusCode), "AntiCrash")
}

// Capture records a panic that the caller already recovered, e.g. a flow
// session that turns the panic into an error state. The stack is sent to the
// error webhook.
func Capture(recovered interface{}) {
	stack := string(debug.Stack())
	if len(stack) > maxStackReport {
		stack = stack[:maxStackReport]
	}

	if handler == nil {
		logger.Error(fmt.Sprintf("Panic recuperado (sin handler): %v", recovered), "AntiCrash")
		return
	}
	handler.HandlePanic(recovered)
	go handler.Report(ReportErrorOptions{
		Error:   "Panic",
		Message: fmt.Sprintf("%v\n```%s```", recovered, stack),
	})
}

// RecoverMiddleware returns a recovery function for use in deferred calls:
//
//	defer errors.RecoverMiddleware()()
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			if handler != nil {
				handler.HandlePanic(r)
			} else {
				logger.Error(fmt.Sprintf("Panic recuperado (sin handler): %v", r), "AntiCrash")
			}
		}
	}
}
