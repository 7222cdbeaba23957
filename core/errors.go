package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 注意：feed 链路的公开入口（feed.Service）对外永远不抛错 ——
// 这里的错误类型只在链路内部流转，用于驱动降级策略。
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "TIMEOUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "repository", "cache"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeTimeout       = "TIMEOUT"        // 调用超时（按拉取失败处理，走降级）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore       = "store"       // 存储模块
	ModuleRepository  = "repository"  // 内容仓库
	ModuleInteraction = "interaction" // 行为日志
	ModuleCache       = "cache"       // feed 缓存
	ModuleProfile     = "profile"     // 偏好画像
	ModuleFeed        = "feed"        // 装配/引擎
)

// 降级链路的错误构造器：每种失败对应一条明确的降级规则，
// 规则本身集中在 engine 的 fallback 组合函数里，这里只负责分类。

// NewProfileFetchError 画像输入不可用 → 降级为零置信度空画像
func NewProfileFetchError(message string) *DomainError {
	return NewDomainError(ModuleProfile, ErrorCodeUnavailable, message)
}

// NewRepositoryFetchError 单类型候选拉取失败 → 该类型配额记 0，装配继续
func NewRepositoryFetchError(message string) *DomainError {
	return NewDomainError(ModuleRepository, ErrorCodeUnavailable, message)
}

// NewCacheWriteError 缓存写入失败 → 记日志，仍返回新算出的结果
func NewCacheWriteError(message string) *DomainError {
	return NewDomainError(ModuleCache, ErrorCodeInternalError, message)
}

// NewTotalFailureError 全部仓库调用失败 → 返回空 feed，而非异常
func NewTotalFailureError(message string) *DomainError {
	return NewDomainError(ModuleFeed, ErrorCodeUnavailable, message)
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsTimeout 检查错误是否为 TIMEOUT
func IsTimeout(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeTimeout
	}
	return false
}
