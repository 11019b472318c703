package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如 AI 分析不可用但简历已保存）
// - 5xxx：系统错误（需要中断流程）
const (
	OK                = 0
	EnrichmentSkipped = 4010
	SystemError       = 5000
)
