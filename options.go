package ripext

import "context"

// ExtensionOption 扩展构造过程中的可选参数
type ExtensionOption func(e *Extension)

// ExtensionWithEngine transfer engine used by every request
func ExtensionWithEngine(engine *TransferEngine) ExtensionOption {
	return func(e *Extension) {
		e.engine = engine
	}
}

// ExtensionWithBuilder url and header builder
func ExtensionWithBuilder(builder Builder) ExtensionOption {
	return func(e *Extension) {
		e.builder = builder
	}
}

// ExtensionWithWorkerPool worker pool owned by the host
func ExtensionWithWorkerPool(pool WorkerPool) ExtensionOption {
	return func(e *Extension) {
		e.pool = pool
	}
}

// ExtensionWithStatistic statistic component, such as a redis backed one
func ExtensionWithStatistic(statistic StatisticInterface) ExtensionOption {
	return func(e *Extension) {
		e.statistic = statistic
	}
}

// ExtensionWithContext context handed to every transfer
func ExtensionWithContext(ctx context.Context) ExtensionOption {
	return func(e *Extension) {
		e.ctx = ctx
	}
}
