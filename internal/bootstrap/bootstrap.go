// Package bootstrap wires configuration, observability and the adapter
// stack into a runnable application.
package bootstrap

import (
	"fmt"
	"log/slog"

	"kyc-verification/internal/config"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/core/usecase"
	"kyc-verification/internal/imaging"
	"kyc-verification/internal/infrastructure/audit"
	"kyc-verification/internal/infrastructure/camera"
	"kyc-verification/internal/infrastructure/ocr"
	"kyc-verification/internal/infrastructure/queue/nats"
	"kyc-verification/internal/infrastructure/resilience"
	"kyc-verification/internal/infrastructure/speech"
	"kyc-verification/internal/infrastructure/vision"
	"kyc-verification/internal/observability/logging"
	"kyc-verification/internal/observability/metrics"
	"kyc-verification/internal/recognizer"
)

type App struct {
	Config  config.Config
	Policy  config.Policy
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Queue      *nats.Queue
	AuditLog   ports.AuditLog
	Verifier   ports.KYCVerifier
	Vision     ports.VisionService
	Recognizer ports.DocumentRecognizer
	Sessions   *usecase.SessionRegistry

	closeFn func()
}

// New builds the full service graph. The NATS queue is optional: when
// the broker is unreachable the audit trail stays process-local and the
// service still comes up.
func New(cfg config.Config, service string) (*App, error) {
	logger := logging.Setup(service, cfg.LogLevel)
	m := metrics.New(service)

	policy := config.DefaultPolicy()
	if cfg.PolicyPath != "" {
		loaded, err := config.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		policy = loaded
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		logger.Warn("nats_unavailable_audit_stays_local", "error", err)
		queue = nil
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	visionClient := vision.New(cfg.VisionURL, cfg.VisionAPIKey, cfg.VisionModel, vision.Options{
		Executor: executor,
		Metrics:  m,
	})
	ocrClient := ocr.New(cfg.OCRURL, 0)
	docRecognizer := recognizer.New(ocrClient, cfg.OCRLanguage)

	memoryLog := audit.NewMemoryLog()
	var auditQueue ports.AuditQueue
	if queue != nil {
		auditQueue = queue
	}
	recorder := audit.NewRecorder(memoryLog, auditQueue, logger, m)

	verifier := usecase.NewVerifyPipeline(visionClient, policy, logger, m)
	speaker := speech.NewPromptLog(logger)

	sessions := usecase.NewSessionRegistry(usecase.SessionDeps{
		NewCamera:  func() usecase.FrameSink { return camera.NewFrameQueue() },
		Quality:    imaging.NewAnalyzer(),
		Recognizer: docRecognizer,
		Faces:      visionClient,
		Verifier:   verifier,
		Audit:      recorder,
		Speaker:    speaker,
		Policy:     policy,
		VoiceWait:  cfg.VoiceFieldTimeout,
		Logger:     logger,
		Metrics:    m,
	})

	app := &App{
		Config:     cfg,
		Policy:     policy,
		Logger:     logger,
		Metrics:    m,
		Queue:      queue,
		AuditLog:   recorder,
		Verifier:   verifier,
		Vision:     visionClient,
		Recognizer: docRecognizer,
		Sessions:   sessions,
	}
	app.closeFn = func() {
		sessions.Close()
		if queue != nil {
			queue.Close()
		}
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
