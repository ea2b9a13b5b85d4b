package securekv

import "github.com/yndnr/securekv/internal/core/domain"

// Errors returned by the store. Compare with errors.Is.
var (
	ErrInvalidConfig          = domain.ErrInvalidConfig
	ErrInvalidKey             = domain.ErrInvalidKey
	ErrValueType              = domain.ErrValueType
	ErrClosed                 = domain.ErrClosed
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrBackendOperationFailed = domain.ErrBackendOperationFailed
	ErrEncodeFailure          = domain.ErrEncodeFailure
	ErrDecodeFailure          = domain.ErrDecodeFailure
)

// ErrorCode returns the stable code of the first store error in err's
// chain, such as "SKV-STORE-5031", or "" when there is none.
func ErrorCode(err error) string {
	return domain.GetErrorCode(err)
}
