package service

// PayoutError 结算处理错误
type PayoutError struct {
	Code    int
	Message string
}

func (e *PayoutError) Error() string {
	return e.Message
}

// 结算错误码定义
const (
	ErrCodeStaffNotFound      = 8401
	ErrCodeStaffNotOnboarded  = 8402
	ErrCodePayoutNotFound     = 8403
	ErrCodePayoutStateInvalid = 8404
	ErrCodeTransferFailed     = 8405
	ErrCodePersistenceFailed  = 8406
)

// 错误定义
var (
	ErrStaffNotFound      = &PayoutError{Code: ErrCodeStaffNotFound, Message: "员工不存在"}
	ErrStaffNotOnboarded  = &PayoutError{Code: ErrCodeStaffNotOnboarded, Message: "员工未完成收款账户入驻"}
	ErrPayoutNotFound     = &PayoutError{Code: ErrCodePayoutNotFound, Message: "打款单不存在"}
	ErrPayoutStateInvalid = &PayoutError{Code: ErrCodePayoutStateInvalid, Message: "仅失败状态的打款单可以重试"}
)

// NewPayoutError 创建结算错误
func NewPayoutError(code int, message string) *PayoutError {
	return &PayoutError{Code: code, Message: message}
}
