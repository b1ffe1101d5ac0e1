package services

import (
	"context"
	"fmt"
	"sync"

	"schoolhub/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ProvisionReconciler 定时重试未完成开通的学校
type ProvisionReconciler struct {
	onboarding  *OnboardingService
	spec        string
	maxAttempts int
	batch       int

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func NewProvisionReconciler(onboarding *OnboardingService, spec string, maxAttempts, batch int) *ProvisionReconciler {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if batch <= 0 {
		batch = 20
	}
	return &ProvisionReconciler{
		onboarding:  onboarding,
		spec:        spec,
		maxAttempts: maxAttempts,
		batch:       batch,
	}
}

// Start 启动调度器，spec 为空时不启动
func (r *ProvisionReconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reconciler already running")
	}
	if r.spec == "" {
		logger.GetLogger().Info("Provision reconciler disabled (PROVISION_RECONCILE_CRON is empty)")
		return nil
	}

	cronLogger := cron.PrintfLogger(logger.GetLogger())
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)))

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := r.cron.AddFunc(r.spec, func() { r.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid reconcile cron %q: %w", r.spec, err)
	}

	r.cancel = cancel
	r.cron.Start()
	r.running = true
	logger.GetLogger().Infof("Provision reconciler started, cron: %s", r.spec)
	return nil
}

// Stop 停止调度器并等待正在执行的任务结束
func (r *ProvisionReconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.cancel()
	<-r.cron.Stop().Done()
	r.running = false
	logger.GetLogger().Info("Provision reconciler stopped")
}

// RunOnce 执行一轮补偿
func (r *ProvisionReconciler) RunOnce(ctx context.Context) {
	succeeded, failed, err := r.onboarding.ReconcilePending(ctx, r.maxAttempts, r.batch)
	if err != nil {
		logger.GetLogger().Errorf("Provision reconcile run failed: %v", err)
		return
	}
	if succeeded+failed > 0 {
		logger.GetLogger().Infof("Provision reconcile run finished: %d succeeded, %d failed", succeeded, failed)
	}
}
